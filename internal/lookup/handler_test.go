package lookup_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/lookup"
	"github.com/gatehouse-console/gatehouse/internal/registry"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	_ "github.com/gatehouse-console/gatehouse/testing"
)

func newLookupHandler(t *testing.T, upstream string) (http.Handler, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)

	service := registry.NewService(backend.NewClient(upstream, 5*time.Second))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	lookup.NewHandler(logger, service).MountRoutes(router)
	return router, sess
}

func TestKeystrokeBurstIssuesOneBackendQuery(t *testing.T) {
	var calls atomic.Int64
	var lastKeyword atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastKeyword.Store(r.URL.Query().Get("keyword"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[{"id":1,"name":"Smith Two","emp_number":"E-2"}],"count":1}`))
	}))
	defer srv.Close()

	handler, sess := newLookupHandler(t, srv.URL)

	var wg sync.WaitGroup
	bodies := make([]string, 2)
	for i, keyword := range []string{"smith", "smith2"} {
		wg.Add(1)
		go func(i int, keyword string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/lookup/users?keyword="+keyword, nil)
			req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			bodies[i] = rec.Body.String()
		}(i, keyword)
		time.Sleep(50 * time.Millisecond)
	}
	wg.Wait()

	require.Equal(t, int64(1), calls.Load())
	require.Equal(t, "smith2", lastKeyword.Load().(string))

	// Both requests resolve with the final keystroke's result.
	for _, body := range bodies {
		var options []lookup.Option
		require.NoError(t, json.Unmarshal([]byte(body), &options))
		require.Len(t, options, 1)
		require.Equal(t, "Smith Two (E-2)", options[0].Label)
	}
}

func TestEmptyKeywordSkipsBackend(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	handler, sess := newLookupHandler(t, srv.URL)

	req := httptest.NewRequest(http.MethodGet, "/lookup/users?keyword=", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(0), calls.Load())
	require.JSONEq(t, "[]", rec.Body.String())
}
