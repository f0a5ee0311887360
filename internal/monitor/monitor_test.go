package monitor

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMonitorReportsPositionUntilDrained(t *testing.T) {
	t.Parallel()

	q := &scriptedQueue{sizes: []int{10, 10, 7, 3, 3, 0}}
	rep := &recordingReporter{}
	m := New(q, rep, time.Millisecond, nil)

	require.NoError(t, m.Run(context.Background(), 10))
	require.Equal(t, 10, rep.total)
	require.Equal(t, []int{0, 3, 7, 7, 10}, rep.positions)
	require.True(t, rep.finished)
}

func TestMonitorFullPositionOnlyWhenEmpty(t *testing.T) {
	t.Parallel()

	q := &scriptedQueue{sizes: []int{4, 1, 1, 1, 0}}
	rep := &recordingReporter{}
	require.NoError(t, New(q, rep, time.Millisecond, nil).Run(context.Background(), 4))

	for i, pos := range rep.positions {
		if i < len(rep.positions)-1 {
			require.Less(t, pos, 4)
		}
	}
	require.Equal(t, 4, rep.positions[len(rep.positions)-1])
}

func TestMonitorCountsDomainsClaimedBeforeStart(t *testing.T) {
	t.Parallel()

	// Workers took three domains before the first poll.
	q := &scriptedQueue{sizes: []int{5, 2, 0}}
	rep := &recordingReporter{}
	require.NoError(t, New(q, rep, time.Millisecond, nil).Run(context.Background(), 8))
	require.Equal(t, 8, rep.total)
	require.Equal(t, []int{3, 6, 8}, rep.positions)
}

func TestMonitorEmptyQueue(t *testing.T) {
	t.Parallel()

	rep := &recordingReporter{}
	require.NoError(t, New(&scriptedQueue{sizes: []int{0}}, rep, time.Hour, nil).Run(context.Background(), 0))
	require.Equal(t, []int{0}, rep.positions)
}

func TestMonitorStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rep := &recordingReporter{}
	q := &fixedQueue{}
	q.n.Store(5)

	done := make(chan error, 1)
	go func() { done <- New(q, rep, 5*time.Millisecond, nil).Run(ctx, 5) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	require.True(t, rep.Finished())
}

func TestLogReporterSkipsUnchangedPositions(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	rep := NewLogReporter(zap.New(core))
	rep.Start(3)
	rep.Update(0)
	rep.Update(0)
	rep.Update(2)
	rep.Update(3)
	rep.Finish()

	require.Equal(t, 3, logs.FilterMessage("scan progress").Len())
	final := logs.FilterMessage("scan progress finished").All()
	require.Len(t, final, 1)
	require.Equal(t, int64(3), final[0].ContextMap()["position"])
}

func TestBarReporterRendersTotals(t *testing.T) {
	t.Parallel()

	var buf syncBuffer
	rep := NewBarReporter(&buf)
	rep.Start(4)
	rep.Update(2)
	rep.Update(4)
	rep.Finish()

	require.Contains(t, buf.String(), "scanning")
}

type scriptedQueue struct {
	mu    sync.Mutex
	sizes []int
}

// Len replays the scripted sizes and then sticks on the last one.
func (q *scriptedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.sizes[0]
	if len(q.sizes) > 1 {
		q.sizes = q.sizes[1:]
	}
	return n
}

type fixedQueue struct {
	n atomic.Int64
}

func (q *fixedQueue) Len() int { return int(q.n.Load()) }

type recordingReporter struct {
	mu        sync.Mutex
	total     int
	positions []int
	finished  bool
}

func (r *recordingReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *recordingReporter) Update(position int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, position)
}

func (r *recordingReporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
}

func (r *recordingReporter) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
