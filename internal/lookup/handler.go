// Package lookup serves the typeahead JSON endpoints behind the filter
// dropdowns. Keystroke bursts from one operator collapse into a single
// backend query per debounce window.
package lookup

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/debounce"
	"github.com/gatehouse-console/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-console/gatehouse/internal/registry"
	"github.com/gatehouse-console/gatehouse/internal/shared"
)

// Delay mirrors the 500ms keystroke debounce of the filter inputs.
const Delay = 500 * time.Millisecond

// Option is one selectable entry.
type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type searcher struct {
	users *debounce.Func[searchArg, []Option]
	rooms *debounce.Func[searchArg, []Option]
	seen  time.Time
}

type searchArg struct {
	token   string
	keyword string
}

// Handler serves /lookup/users and /lookup/rooms.
type Handler struct {
	logger  *slog.Logger
	service *registry.Service

	mu        sync.Mutex
	searchers map[string]*searcher
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *registry.Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		searchers: make(map[string]*searcher),
	}
}

// MountRoutes registers lookup routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/lookup/users", h.users)
	r.Get("/lookup/rooms", h.rooms)
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, func(s *searcher) *debounce.Func[searchArg, []Option] { return s.users })
}

func (h *Handler) rooms(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, func(s *searcher) *debounce.Func[searchArg, []Option] { return s.rooms })
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, pick func(*searcher) *debounce.Func[searchArg, []Option]) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		httpx.JSON(w, http.StatusOK, []Option{})
		return
	}

	s := h.searcherFor(shared.SessionFromContext(r.Context()))
	arg := searchArg{token: backend.TokenFromContext(r.Context()), keyword: keyword}
	options, err := pick(s).Call(r.Context(), arg)
	if err != nil {
		if err == debounce.ErrStopped || r.Context().Err() != nil {
			// A newer keystroke superseded this request.
			httpx.JSON(w, http.StatusOK, []Option{})
			return
		}
		if shared.HandleBackendError(w, r, err) {
			return
		}
		h.logger.Error("lookup failed", "error", err)
		httpx.JSON(w, http.StatusOK, []Option{})
		return
	}
	httpx.JSON(w, http.StatusOK, options)
}

func (h *Handler) searcherFor(sess *shared.Session) *searcher {
	id := ""
	if sess != nil {
		id = sess.ID
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for key, s := range h.searchers {
		if now.Sub(s.seen) > 30*time.Minute {
			s.users.Stop()
			s.rooms.Stop()
			delete(h.searchers, key)
		}
	}

	s, ok := h.searchers[id]
	if !ok {
		s = &searcher{
			users: debounce.NewFunc(h.searchUsers, Delay),
			rooms: debounce.NewFunc(h.searchRooms, Delay),
		}
		h.searchers[id] = s
	}
	s.seen = now
	return s
}

func (h *Handler) searchUsers(ctx context.Context, arg searchArg) ([]Option, error) {
	users, _, err := h.service.ListUsers(backend.WithToken(ctx, arg.token), registry.ListQuery{PageSize: 10, Keyword: arg.keyword})
	if err != nil {
		return nil, err
	}
	options := make([]Option, len(users))
	for i, u := range users {
		options[i] = Option{ID: u.ID, Label: u.Name + " (" + u.EmpNumber + ")"}
	}
	return options, nil
}

func (h *Handler) searchRooms(ctx context.Context, arg searchArg) ([]Option, error) {
	rooms, _, err := h.service.ListRooms(backend.WithToken(ctx, arg.token), registry.ListQuery{PageSize: 10, Keyword: arg.keyword})
	if err != nil {
		return nil, err
	}
	options := make([]Option, len(rooms))
	for i, room := range rooms {
		options[i] = Option{ID: room.ID, Label: room.Name}
	}
	return options, nil
}
