package memory

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueClaimsInOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue([]string{"a.com", "b.com", "c.com"})
	require.Equal(t, 3, q.Len())

	for _, want := range []string{"a.com", "b.com", "c.com"} {
		got, ok := q.Claim(context.Background())
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	require.Zero(t, q.Len())

	_, ok := q.Claim(context.Background())
	require.False(t, ok, "drained queue must report empty")
	_, ok = q.Claim(context.Background())
	require.False(t, ok, "empty stays empty")
}

func TestQueueClaimRespectsCanceledContext(t *testing.T) {
	t.Parallel()

	q := NewQueue([]string{"a.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Claim(ctx)
	require.False(t, ok)
	require.Equal(t, 1, q.Len(), "canceled claim must not consume")
}

func TestQueueConcurrentClaimsAreExclusive(t *testing.T) {
	t.Parallel()

	const n = 5000
	domains := make([]string, n)
	for i := range domains {
		domains[i] = "d" + strconv.Itoa(i) + ".com"
	}
	q := NewQueue(domains)

	var (
		mu   sync.Mutex
		seen = make(map[string]int, n)
		wg   sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				d, ok := q.Claim(context.Background())
				if !ok {
					return
				}
				mu.Lock()
				seen[d]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n)
	for d, count := range seen {
		require.Equal(t, 1, count, "domain %s claimed more than once", d)
	}
}

func TestQueueCloseTwice(t *testing.T) {
	t.Parallel()

	q := NewQueue(nil)
	q.Close()
	q.Close()
	_, ok := q.Claim(context.Background())
	require.False(t, ok)
}
