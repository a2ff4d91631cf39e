package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatehouse-console/gatehouse/internal/accesslog"
	"github.com/gatehouse-console/gatehouse/internal/audit"
	"github.com/gatehouse-console/gatehouse/internal/auth"
	"github.com/gatehouse-console/gatehouse/internal/dashboard"
	"github.com/gatehouse-console/gatehouse/internal/lookup"
	"github.com/gatehouse-console/gatehouse/internal/observability"
	"github.com/gatehouse-console/gatehouse/internal/offline"
	"github.com/gatehouse-console/gatehouse/internal/registry"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/jobs"
	"github.com/gatehouse-console/gatehouse/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	OfflineHandler   *offline.Handler
	AccessLogHandler *accesslog.Handler
	DashboardHandler *dashboard.Handler
	RegistryHandler  *registry.Handler
	LookupHandler    *lookup.Handler
	AuditHandler     *audit.Handler
	JobsHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Gatehouse defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || (sess.AccessToken() == "" && !sess.IsBreakglass()) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	})

	// Public surface: login, the offline parking page, and metrics.
	params.AuthHandler.MountRoutes(r)
	params.OfflineHandler.MountRoutes(r)
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Everything else requires a logged-in operator.
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(params.SessionManager))
		params.DashboardHandler.MountRoutes(r)
		params.AccessLogHandler.MountRoutes(r)
		params.RegistryHandler.MountRoutes(r)
		params.LookupHandler.MountRoutes(r)
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		// Static file server with Cache-Control headers
		// Note: Static files are served without rate limiting (no session/CSRF needed)
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets (JS, CSS, fonts, images) are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
