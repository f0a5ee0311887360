package cmd

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rootscan/internal/dispatcher"
	"github.com/JakeFAU/rootscan/internal/monitor"
	memqueue "github.com/JakeFAU/rootscan/internal/queue/memory"
	"github.com/JakeFAU/rootscan/internal/scanner"
	memstore "github.com/JakeFAU/rootscan/internal/storage/memory"
	"github.com/JakeFAU/rootscan/internal/worker"
)

func TestSuperviseScanReportsFullQueueSize(t *testing.T) {
	t.Parallel()

	domains := make([]string, 8)
	for i := range domains {
		domains[i] = "d" + strconv.Itoa(i) + ".example"
	}
	queue := memqueue.NewQueue(domains)
	records := memstore.NewRecordStore()
	slow := slowFetcher(15 * time.Millisecond)

	workers := make([]*worker.Worker, 0, 3)
	for id := range 3 {
		workers = append(workers, worker.New(worker.Config{ID: id}, queue, slow, records, nil, nil))
	}
	rep := &positionRecorder{}
	mon := monitor.New(queue, rep, 2*time.Millisecond, nil)

	processed, err := superviseScan(context.Background(), dispatcher.New(workers), queue, mon)
	require.NoError(t, err)
	require.Equal(t, int64(8), processed)
	require.Equal(t, 8, records.Len())

	total, positions := rep.State()
	require.Equal(t, 8, total)
	require.NotEmpty(t, positions)
	require.Equal(t, 8, positions[len(positions)-1])
	for _, p := range positions {
		require.GreaterOrEqual(t, p, 0)
		require.LessOrEqual(t, p, 8)
	}
}

func TestSuperviseScanFewerDomainsThanWorkers(t *testing.T) {
	t.Parallel()

	queue := memqueue.NewQueue([]string{"a.example", "b.example"})
	records := memstore.NewRecordStore()
	workers := make([]*worker.Worker, 0, 5)
	for id := range 5 {
		workers = append(workers, worker.New(worker.Config{ID: id}, queue, slowFetcher(5*time.Millisecond), records, nil, nil))
	}
	rep := &positionRecorder{}

	processed, err := superviseScan(context.Background(), dispatcher.New(workers), queue,
		monitor.New(queue, rep, time.Millisecond, nil))
	require.NoError(t, err)
	require.Equal(t, int64(2), processed)

	total, positions := rep.State()
	require.Equal(t, 2, total)
	require.Equal(t, 2, positions[len(positions)-1])
}

type slowFetcher time.Duration

func (d slowFetcher) Fetch(ctx context.Context, domain string) (scanner.Outcome, error) {
	select {
	case <-time.After(time.Duration(d)):
	case <-ctx.Done():
	}
	return scanner.Failed(domain), nil
}

type positionRecorder struct {
	mu        sync.Mutex
	total     int
	positions []int
}

func (r *positionRecorder) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
}

func (r *positionRecorder) Update(position int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, position)
}

func (r *positionRecorder) Finish() {}

func (r *positionRecorder) State() (int, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total, append([]int(nil), r.positions...)
}
