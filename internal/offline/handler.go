// Package offline owns the recovery screen shown when the backend cannot be
// reached. The page polls the probe endpoint with a capped backoff schedule
// and sends the operator back to where they came from once the backend
// answers again.
package offline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
)

// BackoffSchedule is the delay before each retry, in order. Attempts past the
// end reuse the final delay.
var BackoffSchedule = []time.Duration{
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
	25 * time.Second,
}

// DelayFor returns the wait before retry number attempt (zero-based).
func DelayFor(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(BackoffSchedule) {
		return BackoffSchedule[len(BackoffSchedule)-1]
	}
	return BackoffSchedule[attempt]
}

// Handler serves the offline screen and its reachability probe.
type Handler struct {
	logger    *slog.Logger
	client    *backend.Client
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, client *backend.Client, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, client: client, templates: templates, csrf: csrf}
}

// MountRoutes registers offline routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/server-offline", h.show)
	r.Get("/server-offline/probe", h.probe)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	attempt, _ := strconv.Atoi(r.URL.Query().Get("attempt"))
	next := shared.SafeNext(r.URL.Query().Get("next"))

	// If the backend is already back, skip the parking page entirely. Any
	// HTTP answer counts as reachable, including an auth rejection.
	if reachable(h.client.Ping(r.Context())) {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Server Tidak Terjangkau",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data: map[string]any{
			"Next":         next,
			"Attempt":      attempt,
			"RetryDelayMS": DelayFor(attempt).Milliseconds(),
		},
	}
	if err := h.templates.Render(w, "pages/server_offline.html", viewData); err != nil {
		h.logger.Error("render offline", "error", err)
	}
}

// probe reports backend reachability as JSON for the page's retry script.
func (h *Handler) probe(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]bool{"online": reachable(h.client.Ping(r.Context()))})
}

func reachable(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, backend.ErrUnreachable) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
