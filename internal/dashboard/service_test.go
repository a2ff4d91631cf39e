package dashboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/dashboard"
	_ "github.com/gatehouse-console/gatehouse/testing"
)

func newBackendStub(t *testing.T, countCalls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/rooms/count":
			countCalls.Add(1)
			_, _ = w.Write([]byte(`{"count":12}`))
		case "/api/v1/users/count":
			countCalls.Add(1)
			_, _ = w.Write([]byte(`{"count":340}`))
		case "/api/v1/time":
			_, _ = w.Write([]byte(`{"time":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
		case "/api/v1/access-log/access-list":
			_, _ = w.Write([]byte(`{"status":"success","data":[{"id":1,"emp_name":"Budi"}],"count":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOverviewCachesCounters(t *testing.T) {
	var countCalls atomic.Int64
	srv := newBackendStub(t, &countCalls)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := dashboard.NewCache(redisClient, time.Minute)

	client := backend.NewClient(srv.URL, 5*time.Second)
	svc := dashboard.NewService(client, cache)

	first, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, first.Counters.Rooms)
	require.Equal(t, 340, first.Counters.Users)
	require.Len(t, first.LastEvents, 1)
	require.Equal(t, int64(2), countCalls.Load())

	// Counters come from redis on the second load.
	second, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.Counters, second.Counters)
	require.Equal(t, int64(2), countCalls.Load())
}

func TestRefreshCountersBumpsVersion(t *testing.T) {
	var countCalls atomic.Int64
	srv := newBackendStub(t, &countCalls)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := dashboard.NewCache(redisClient, time.Minute)

	client := backend.NewClient(srv.URL, 5*time.Second)
	svc := dashboard.NewService(client, cache)

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), countCalls.Load())

	require.NoError(t, svc.RefreshCounters(context.Background()))
	require.Equal(t, int64(4), countCalls.Load())
}
