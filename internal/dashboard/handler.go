package dashboard

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-console/gatehouse/internal/imagecache"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
)

// Handler renders the dashboard page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	images    *imagecache.Cache
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, images *imagecache.Cache, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, images: images, templates: templates, csrf: csrf}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/home", h.show)
	r.Post("/home/refresh", h.refresh)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshCounters(r.Context()); err != nil {
		if shared.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Error("refresh counters", "error", err)
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Gagal memperbarui angka."})
		}
	} else if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Angka diperbarui."})
	}
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		if shared.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Error("load dashboard", "error", err)
		http.Error(w, "Gagal memuat data.", http.StatusInternalServerError)
		return
	}

	// Warm the face captures of the recent-events table in the background;
	// the image proxy serves them as they arrive.
	names := make([]string, 0, len(overview.LastEvents))
	for _, ev := range overview.LastEvents {
		if ev.ImageFile != "" {
			names = append(names, ev.ImageFile)
		}
	}
	h.images.Resolve(r.Context(), names)

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	username, role := "", ""
	if sess != nil {
		flash = sess.PopFlash()
		username = sess.Username()
		role = sess.Role()
	}
	viewData := view.TemplateData{
		Title:       "Beranda",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Username:    username,
		Role:        role,
		Data: map[string]any{
			"Counters":   overview.Counters,
			"ServerTime": time.Now().Add(overview.ClockOffset),
			"LastEvents": overview.LastEvents,
		},
	}
	if err := h.templates.Render(w, "pages/home.html", viewData); err != nil {
		h.logger.Error("render home", "error", err)
	}
}
