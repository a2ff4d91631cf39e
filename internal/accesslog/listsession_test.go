package accesslog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-console/gatehouse/internal/backend"
)

type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]stubPage
	calls   map[string]int
	block   map[string]chan struct{}
	failAll error
}

type stubPage struct {
	rows  []Event
	total int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages: map[string]stubPage{},
		calls: map[string]int{},
		block: map[string]chan struct{}{},
	}
}

func (f *stubFetcher) set(key string, total int, rows ...Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[key] = stubPage{rows: rows, total: total}
}

func (f *stubFetcher) FetchPage(ctx context.Context, q Query) ([]Event, int, error) {
	key := q.Key()
	f.mu.Lock()
	f.calls[key]++
	gate := f.block[key]
	page := f.pages[key]
	failAll := f.failAll
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	if failAll != nil {
		return nil, 0, failAll
	}
	return page.rows, page.total, nil
}

func (f *stubFetcher) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func events(n int, offset int) []Event {
	out := make([]Event, n)
	for i := range out {
		out[i] = Event{ID: int64(offset + i + 1), EmpName: fmt.Sprintf("emp-%d", offset+i+1)}
	}
	return out
}

func TestLoadFirstPage(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.set("limit=10&offset=0", 23, events(10, 0)...)
	s := NewListSession(fetcher, 10)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 23, snap.Total)
	require.Equal(t, 3, snap.PageCount)
	require.Len(t, snap.Rows, 10)
	require.False(t, snap.Failed)
}

func TestLastPageHasRemainderAndBeyondIsRejected(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.set("limit=10&offset=0", 23, events(10, 0)...)
	fetcher.set("limit=10&offset=20", 23, events(3, 20)...)
	s := NewListSession(fetcher, 10)

	_, err := s.Load(context.Background())
	require.NoError(t, err)

	s.Apply(Filter{}, 2)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.PageIndex)
	require.Len(t, snap.Rows, 3)

	// Page index 3 is out of range for 23 rows; the request is ignored.
	s.Apply(Filter{}, 3)
	snap, err = s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, snap.PageIndex)
}

func TestFilterChangeResetsToPageZero(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.set("limit=10&offset=0", 23, events(10, 0)...)
	fetcher.set("limit=10&offset=10", 23, events(10, 10)...)
	fetcher.set("limit=10&offset=0&keyword=smith", 2, events(2, 0)...)
	s := NewListSession(fetcher, 10)

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	s.Apply(Filter{}, 1)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snap.PageIndex)

	s.Apply(Filter{Keyword: "smith"}, 1)
	snap, err = s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, snap.PageIndex)
	require.Equal(t, "limit=10&offset=0&keyword=smith", snap.Key)
	require.Equal(t, 2, snap.Total)
}

func TestTerminalFailureRecoversToEmptyFailedSnapshot(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.failAll = &backend.StatusError{Code: 500}
	s := NewListSession(fetcher, 10)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Failed)
	require.Empty(t, snap.Rows)
	require.Equal(t, 0, snap.Total)
	require.Equal(t, 1, snap.PageCount)
}

func TestAuthFailurePropagates(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.failAll = backend.ErrUnauthorized
	s := NewListSession(fetcher, 10)

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestStaleResponseRejection(t *testing.T) {
	fetcher := newStubFetcher()
	oldKey := "limit=10&offset=0&keyword=old"
	newKey := "limit=10&offset=0&keyword=new"
	gate := make(chan struct{})
	fetcher.block[oldKey] = gate
	fetcher.set(oldKey, 5, events(5, 100)...)
	fetcher.set(newKey, 1, Event{ID: 1, EmpName: "fresh"})

	s := NewListSession(fetcher, 10)
	s.Apply(Filter{Keyword: "old"}, 0)

	var staleSnap Snapshot
	done := make(chan struct{})
	go func() {
		defer close(done)
		staleSnap, _ = s.Load(context.Background())
	}()
	time.Sleep(30 * time.Millisecond)

	// Filter changes while the old fetch is still in flight.
	s.Apply(Filter{Keyword: "new"}, 0)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, newKey, snap.Key)
	require.Equal(t, "fresh", snap.Rows[0].EmpName)

	close(gate)
	<-done

	// The late response must not have overwritten the newer state.
	require.Equal(t, newKey, staleSnap.Key)
	require.True(t, staleSnap.Stale)
	final, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, newKey, final.Key)
	require.Equal(t, "fresh", final.Rows[0].EmpName)
}

func TestConcurrentIdenticalLoadsAreDeduplicated(t *testing.T) {
	fetcher := newStubFetcher()
	key := "limit=10&offset=0"
	gate := make(chan struct{})
	fetcher.block[key] = gate
	fetcher.set(key, 3, events(3, 0)...)
	s := NewListSession(fetcher, 10)

	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := s.Load(context.Background())
			if err != nil || len(snap.Rows) != 3 {
				failures.Add(1)
			}
		}()
	}
	time.Sleep(30 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, int64(0), failures.Load())
	require.Equal(t, 1, fetcher.callCount(key))
}

func TestCachedKeyServedWithoutRefetchFlash(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.set("limit=10&offset=0", 23, events(10, 0)...)
	fetcher.set("limit=10&offset=10", 23, events(10, 10)...)
	s := NewListSession(fetcher, 10)

	_, err := s.Load(context.Background())
	require.NoError(t, err)
	s.Apply(Filter{}, 1)
	_, err = s.Load(context.Background())
	require.NoError(t, err)

	// Going back to page 0 serves the cached rows immediately.
	s.Apply(Filter{}, 0)
	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, snap.Stale)
	require.Equal(t, int64(1), snap.Rows[0].ID)
}
