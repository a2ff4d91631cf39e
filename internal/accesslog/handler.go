package accesslog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-console/gatehouse/internal/imagecache"
	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
)

const (
	// imageWarmupWait bounds how long the list page blocks on face captures
	// before rendering with whatever has arrived.
	imageWarmupWait = 1500 * time.Millisecond

	// listIdleTTL is how long an operator's list state survives without a
	// request before it is pruned.
	listIdleTTL = 30 * time.Minute

	dateLayout = "2006-01-02"
)

// Handler serves the access log listing and the face-capture image proxy.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	images    *imagecache.Cache
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager

	mu    sync.Mutex
	lists map[string]*listEntry
}

type listEntry struct {
	session  *ListSession
	lastSeen time.Time
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, images *imagecache.Cache, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		images:    images,
		templates: templates,
		csrf:      csrf,
		sessions:  sessions,
		lists:     make(map[string]*listEntry),
	}
}

// MountRoutes registers access log routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/access-log", h.list)
	r.Get("/access-log/image/{filename}", h.image)
}

// Row is one rendered table line.
type Row struct {
	Event
	ImageState string
}

// Image display states consumed by the table template.
const (
	imageReady   = "ready"
	imageLoading = "loading"
	imageNone    = "none"
)

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	filter := h.parseFilter(r, sess)

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	ls := h.listFor(sess)
	ls.Apply(filter, page-1)

	snap, err := ls.Load(r.Context())
	if err != nil {
		if shared.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Error("load access log", "error", err)
		http.Error(w, "Gagal memuat data.", http.StatusInternalServerError)
		return
	}

	rows := h.resolveImages(r.Context(), snap.Rows)

	h.render(w, r, "pages/access_log.html", map[string]any{
		"Rows":      rows,
		"Filter":    ls.Filter(),
		"Total":     snap.Total,
		"PageIndex": snap.PageIndex,
		"PageSize":  snap.PageSize,
		"PageCount": snap.PageCount,
		"Failed":    snap.Failed,
	})
}

// image serves a face capture from the shared cache. Unresolved filenames get
// one bounded fetch attempt before a miss is reported.
func (h *Handler) image(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), imageWarmupWait)
	defer cancel()
	_ = h.images.Wait(ctx, []string{filename})

	img, state := h.images.Lookup(filename)
	if state != imagecache.StateResolved {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(img.Data)
}

// parseFilter reads the filter form. Malformed dates are dropped with a
// warning instead of blocking the listing; an end date without a start date is
// flagged but still applied, matching the backend's permissive handling.
func (h *Handler) parseFilter(r *http.Request, sess *shared.Session) Filter {
	q := r.URL.Query()
	f := Filter{Keyword: strings.TrimSpace(q.Get("keyword"))}

	warn := func(msg string) {
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: msg})
		}
	}

	if v := q.Get("start_date"); v != "" {
		if _, err := time.ParseInLocation(dateLayout, v, time.Local); err != nil {
			warn("Format tanggal awal tidak valid.")
		} else {
			f.StartDate = v
		}
	}
	if v := q.Get("end_date"); v != "" {
		if _, err := time.ParseInLocation(dateLayout, v, time.Local); err != nil {
			warn("Format tanggal akhir tidak valid.")
		} else {
			f.EndDate = v
		}
	}
	if f.EndDate != "" && f.StartDate == "" {
		warn("Tanggal akhir diisi tanpa tanggal awal.")
	}

	if v := q.Get("room_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.RoomID = id
		}
	}
	if v := q.Get("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.UserID = id
		}
	}
	return f
}

// resolveImages warms the cache for every filename on the page and waits
// briefly so first paint serves most captures directly. Slow fetches keep
// running and are picked up by the image proxy.
func (h *Handler) resolveImages(ctx context.Context, events []Event) []Row {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.ImageFile != "" {
			names = append(names, ev.ImageFile)
		}
	}
	h.images.Resolve(ctx, names)

	waitCtx, cancel := context.WithTimeout(ctx, imageWarmupWait)
	defer cancel()
	_ = h.images.Wait(waitCtx, names)

	rows := make([]Row, len(events))
	for i, ev := range events {
		rows[i] = Row{Event: ev, ImageState: imageNone}
		if ev.ImageFile == "" {
			continue
		}
		switch _, state := h.images.Lookup(ev.ImageFile); state {
		case imagecache.StateResolved:
			rows[i].ImageState = imageReady
		case imagecache.StatePending, imagecache.StateUnknown:
			rows[i].ImageState = imageLoading
		}
	}
	return rows
}

// listFor returns the operator's list state, creating it on first use.
func (h *Handler) listFor(sess *shared.Session) *ListSession {
	id := ""
	if sess != nil {
		id = sess.ID
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for key, entry := range h.lists {
		if now.Sub(entry.lastSeen) > listIdleTTL {
			delete(h.lists, key)
		}
	}

	entry, ok := h.lists[id]
	if !ok {
		entry = &listEntry{session: NewListSession(h.service, DefaultPageSize)}
		h.lists[id] = entry
	}
	entry.lastSeen = now
	return entry.session
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any) {
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
		Title:       "Log Akses",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Username:    username,
		Role:        role,
		Data:        data,
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", "error", err, "template", template)
	}
}
