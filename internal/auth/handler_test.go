package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-console/gatehouse/internal/auth"
	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
	_ "github.com/gatehouse-console/gatehouse/testing"
)

func newAuthHandler(t *testing.T, backendURL, breakglassHash string) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	client := backend.NewClient(backendURL, 5*time.Second)
	service := auth.NewService(client, "emergency", breakglassHash)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, service, templates, sessionManager, csrfManager)
	return handler, sessionManager
}

func loginBackend(t *testing.T, wantUser, wantPass string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), wantUser) || !strings.Contains(string(body), wantPass) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"error"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","access_token":"tok-123","user":{"id":1,"username":"` + wantUser + `","role":"admin"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, "http://127.0.0.1:0", "")

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestLoginSuccessStoresTokenAndRedirects(t *testing.T) {
	srv := loginBackend(t, "operator1", "correctpass")
	handler, sessionManager := newAuthHandler(t, srv.URL, "")

	postData := url.Values{}
	postData.Set("username", "operator1")
	postData.Set("password", "correctpass")
	postData.Set("next", "/access-log?page=2")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(postData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/access-log?page=2" {
		t.Fatalf("expected redirect to next, got %q", loc)
	}
	if sess.AccessToken() != "tok-123" {
		t.Fatalf("expected access token stored, got %q", sess.AccessToken())
	}
	if sess.Username() != "operator1" || sess.Role() != "admin" {
		t.Fatalf("operator identity not stored: %q %q", sess.Username(), sess.Role())
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := loginBackend(t, "operator1", "correctpass")
	handler, sessionManager := newAuthHandler(t, srv.URL, "")

	postData := url.Values{}
	postData.Set("username", "operator1")
	postData.Set("password", "wrongpass")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(postData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Username atau password tidak valid") {
		t.Fatalf("expected error message in response")
	}
	if sess.AccessToken() != "" {
		t.Fatalf("token must not be stored on failed login")
	}
}

func TestLoginOfflineBackendRedirectsToOfflinePage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	handler, sessionManager := newAuthHandler(t, srv.URL, "")

	postData := url.Values{}
	postData.Set("username", "operator1")
	postData.Set("password", "whatever1")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(postData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); !strings.HasPrefix(loc, "/server-offline") {
		t.Fatalf("expected offline redirect, got %q", loc)
	}
}

func TestBreakglassLoginWhenBackendDown(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("override-pass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	handler, sessionManager := newAuthHandler(t, srv.URL, string(hashed))

	postData := url.Values{}
	postData.Set("username", "emergency")
	postData.Set("password", "override-pass")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(postData.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if !sess.IsBreakglass() {
		t.Fatalf("expected breakglass session")
	}
	if sess.AccessToken() != "" {
		t.Fatalf("breakglass session must not carry a backend token")
	}
}
