package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gatehouse-console/gatehouse/internal/accesslog"
	"github.com/gatehouse-console/gatehouse/internal/backend"
)

// Counters are the headline numbers on the dashboard.
type Counters struct {
	Rooms int `json:"rooms"`
	Users int `json:"users"`
}

// Overview aggregates everything the dashboard page renders.
type Overview struct {
	Counters Counters
	// ClockOffset is backend time minus console time at fetch. Rendering adds
	// it to the local clock so the displayed time tracks the access devices.
	ClockOffset time.Duration
	LastEvents  []accesslog.Event
}

// Service assembles the dashboard from the backend, caching the counters.
type Service struct {
	client *backend.Client
	cache  *Cache
}

// NewService constructs a Service.
func NewService(client *backend.Client, cache *Cache) *Service {
	return &Service{client: client, cache: cache}
}

// Overview fetches counters, clock offset and the ten most recent events. The
// three fetches run concurrently; a failure in any aborts the page so the
// caller can apply the shared error policy.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counters, err := s.counters(gctx)
		if err != nil {
			return err
		}
		out.Counters = counters
		return nil
	})
	g.Go(func() error {
		serverTime, err := s.client.ServerTime(gctx)
		if err != nil {
			return err
		}
		out.ClockOffset = time.Until(serverTime)
		return nil
	})
	g.Go(func() error {
		q := accesslog.Query{PageSize: accesslog.DefaultPageSize}
		events, _, err := backend.List[accesslog.Event](gctx, s.client, "/access-log/access-list", q.Key())
		if err != nil {
			return err
		}
		out.LastEvents = events
		return nil
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// RefreshCounters recomputes the cached counters, used by the warmup job.
func (s *Service) RefreshCounters(ctx context.Context) error {
	if err := s.cache.Bump(ctx); err != nil {
		return err
	}
	_, err := s.counters(ctx)
	return err
}

func (s *Service) counters(ctx context.Context) (Counters, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "counters")
	if err != nil {
		return Counters{}, err
	}
	var counters Counters
	err = s.cache.FetchJSON(ctx, key, &counters, func(ctx context.Context) (interface{}, error) {
		var c Counters
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			n, err := s.client.Count(gctx, "/rooms/count")
			c.Rooms = n
			return err
		})
		g.Go(func() error {
			n, err := s.client.Count(gctx, "/users/count")
			c.Users = n
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return c, nil
	})
	return counters, err
}
