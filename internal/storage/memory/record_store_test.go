package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/rootscan/internal/scanner"
	"github.com/JakeFAU/rootscan/internal/store"
)

func TestRecordStoreFirstWriteWins(t *testing.T) {
	t.Parallel()

	s := NewRecordStore()
	ctx := context.Background()
	status := int16(200)

	first := scanner.Outcome{Domain: "example.com", Success: true, Status: &status}
	require.Equal(t, scanner.Stored(), s.Store(ctx, first))
	require.Equal(t, scanner.Ignored(), s.Store(ctx, scanner.Failed("example.com")))

	got, ok := s.Get("example.com")
	require.True(t, ok)
	require.True(t, got.Success)
	require.Equal(t, int16(200), *got.Status)
	require.Equal(t, 1, s.Len())
}

func TestRecordStoreCanceledContextDrops(t *testing.T) {
	t.Parallel()

	s := NewRecordStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Store(ctx, scanner.Failed("example.com"))
	require.Equal(t, scanner.StoreDropped, res.Status)
	require.ErrorIs(t, res.Err, context.Canceled)
	require.Zero(t, s.Len())
}

func TestRecordStoreConcurrentWriters(t *testing.T) {
	t.Parallel()

	s := NewRecordStore()
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				res := s.Store(context.Background(), scanner.Failed("d"+strconv.Itoa(i)))
				if res.Status == scanner.StoreStored {
					mu.Lock()
					stored++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 200, stored)
	require.Equal(t, 200, s.Len())
}

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	rs := NewRunStore()
	ctx := context.Background()
	id := uuid.New()
	started := time.Now().UTC()

	require.NoError(t, rs.StartRun(ctx, id, started, 10))
	require.NoError(t, rs.StartRun(ctx, id, started.Add(time.Hour), 99))

	run, err := rs.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, store.RunRunning, run.Status)
	require.Equal(t, int64(10), run.Total)
	require.Nil(t, run.FinishedAt)

	finished := started.Add(time.Minute)
	require.NoError(t, rs.FinishRun(ctx, id, finished, store.Tally{Processed: 10, Success: 7, Failure: 3, Stored: 10}))
	run, err = rs.GetRun(ctx, id)
	require.NoError(t, err)
	require.Equal(t, store.RunFinished, run.Status)
	require.Equal(t, finished, *run.FinishedAt)
	require.Equal(t, int64(7), run.Tally.Success)

	require.ErrorIs(t, rs.FinishRun(ctx, uuid.New(), finished, store.Tally{}), store.ErrNotFound)
	_, err = rs.GetRun(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}
