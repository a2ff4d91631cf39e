package accesslog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gatehouse-console/gatehouse/internal/backend"
)

// Fetcher retrieves one page of events from the backend.
type Fetcher interface {
	FetchPage(ctx context.Context, q Query) ([]Event, int, error)
}

// Snapshot is the renderable outcome of a Load: the rows for the current key
// plus everything the table and pager need.
type Snapshot struct {
	Key       string
	Rows      []Event
	Total     int
	PageIndex int
	PageSize  int
	PageCount int
	// Failed marks a terminal fetch failure recovered into an empty result.
	// The table renders "Gagal memuat data." instead of the no-data message.
	Failed bool
	// Stale marks rows served from cache while a revalidation runs.
	Stale bool
}

type cachedPage struct {
	rows    []Event
	total   int
	fetched time.Time
}

// ListSession owns the pagination state machine and the per-key result cache
// for one list view. Responses are applied in last-request-wins order: a
// response whose generation no longer matches is cached but never overwrites
// the current snapshot.
type ListSession struct {
	mu      sync.Mutex
	fetcher Fetcher
	window  *PageWindow
	filter  Filter
	gen     uint64
	cache   map[string]cachedPage
	group   singleflight.Group
	current Snapshot

	// revalidateTimeout bounds background refreshes of cached pages.
	revalidateTimeout time.Duration
}

// NewListSession constructs a session with the given page size.
func NewListSession(fetcher Fetcher, pageSize int) *ListSession {
	return &ListSession{
		fetcher:           fetcher,
		window:            NewPageWindow(pageSize),
		cache:             make(map[string]cachedPage),
		revalidateTimeout: 10 * time.Second,
	}
}

// Apply records the operator's requested filter and page. A filter change
// resets the cursor to page 0 and bumps the generation so in-flight responses
// for the old criteria can no longer win; the reset is observable before the
// next fetch is keyed.
func (s *ListSession) Apply(filter Filter, pageIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter != s.filter {
		s.filter = filter
		s.window.Reset()
		s.gen++
		return
	}
	if pageIndex >= 0 {
		s.window.SetPageIndex(pageIndex)
	}
}

// Filter returns the currently applied criteria.
func (s *ListSession) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Load resolves the current query. Cached keys are served immediately and
// revalidated in the background (previous data is shown rather than a loading
// flash); uncached keys are fetched synchronously with singleflight dedupe.
// Authentication and reachability failures propagate; data-level failures are
// recovered into an empty Failed snapshot.
func (s *ListSession) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	q := s.query()
	key := q.Key()
	gen := s.gen
	cached, ok := s.cache[key]
	s.mu.Unlock()

	if ok {
		// WithoutCancel keeps the caller's credentials on the refresh while
		// detaching it from the request lifetime.
		go s.revalidate(context.WithoutCancel(ctx), key, q, gen)
		return s.apply(key, gen, cached.rows, cached.total, true), nil
	}

	rows, total, err := s.fetchShared(ctx, key, q)
	if err != nil {
		if !backend.IsTerminal(err) {
			return Snapshot{}, err
		}
		return s.applyFailure(key, gen), nil
	}
	return s.apply(key, gen, rows, total, false), nil
}

// Invalidate drops every cached page, forcing the next Load to refetch.
func (s *ListSession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cachedPage)
}

func (s *ListSession) query() Query {
	return Query{
		PageSize:  s.window.PageSize(),
		PageIndex: s.window.PageIndex(),
		Filter:    s.filter,
	}
}

// fetchShared collapses concurrent identical requests into one upstream call.
func (s *ListSession) fetchShared(ctx context.Context, key string, q Query) ([]Event, int, error) {
	type page struct {
		rows  []Event
		total int
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		rows, total, err := s.fetcher.FetchPage(ctx, q)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = cachedPage{rows: rows, total: total, fetched: time.Now()}
		s.mu.Unlock()
		return page{rows: rows, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	p := v.(page)
	return p.rows, p.total, nil
}

// apply installs a fetched page as the current snapshot unless the filter
// generation moved on while the fetch was in flight, in which case the stale
// response is discarded and the caller sees the current state instead.
func (s *ListSession) apply(key string, gen uint64, rows []Event, total int, fromCache bool) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		snap := s.current
		snap.Stale = true
		return snap
	}
	s.window.SetTotal(total)
	snap := Snapshot{
		Key:       key,
		Rows:      rows,
		Total:     total,
		PageIndex: s.window.PageIndex(),
		PageSize:  s.window.PageSize(),
		PageCount: s.window.PageCount(),
		Stale:     fromCache,
	}
	s.current = snap
	return snap
}

func (s *ListSession) applyFailure(key string, gen uint64) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		snap := s.current
		snap.Stale = true
		return snap
	}
	snap := Snapshot{
		Key:       key,
		Rows:      nil,
		Total:     0,
		PageIndex: s.window.PageIndex(),
		PageSize:  s.window.PageSize(),
		PageCount: 1,
		Failed:    true,
	}
	s.current = snap
	return snap
}

// revalidate refreshes a cached key in the background. The result updates the
// cache unconditionally but the visible snapshot only when the key and
// generation still match the operator's current request.
func (s *ListSession) revalidate(ctx context.Context, key string, q Query, gen uint64) {
	ctx, cancel := context.WithTimeout(ctx, s.revalidateTimeout)
	defer cancel()
	rows, total, err := s.fetchShared(ctx, key, q)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.current.Key != key {
		return
	}
	s.window.SetTotal(total)
	s.current = Snapshot{
		Key:       key,
		Rows:      rows,
		Total:     total,
		PageIndex: s.window.PageIndex(),
		PageSize:  s.window.PageSize(),
		PageCount: s.window.PageCount(),
	}
}
