package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
)

// Handler renders the audit timeline page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.timeline)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	filters := Filters{
		Operator: r.URL.Query().Get("operator"),
		Action:   r.URL.Query().Get("action"),
		Page:     page,
	}

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", "error", err)
		http.Error(w, "Gagal memuat data.", http.StatusInternalServerError)
		return
	}

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
		Title:       "Jejak Audit",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Username:    username,
		Role:        role,
		Data: map[string]any{
			"Rows":    result.Rows,
			"Paging":  result.Paging,
			"Filters": filters,
		},
	}
	if err := h.templates.Render(w, "pages/audit.html", viewData); err != nil {
		h.logger.Error("render audit", "error", err)
	}
}
