package registry

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gatehouse-console/gatehouse/internal/shared"
	"github.com/gatehouse-console/gatehouse/internal/view"
)

type formErrors map[string]string

// Recorder captures who changed what. Nil recorder disables the trail.
type Recorder interface {
	Record(ctx context.Context, id, operator, action, entity, entityID, detail string) error
}

// Handler manages the entity management pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	validator *validator.Validate
	recorder  Recorder
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		sessions:  sessions,
		validator: validator.New(),
	}
}

// SetRecorder enables the operator audit trail for mutations.
func (h *Handler) SetRecorder(rec Recorder) {
	h.recorder = rec
}

// record writes an audit row off the request path. The mutation already
// succeeded, so a trail failure only gets logged.
func (h *Handler) record(r *http.Request, action, entity, entityID, detail string) {
	if h.recorder == nil {
		return
	}
	operator := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		operator = sess.Username()
	}
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.recorder.Record(ctx, uuid.NewString(), operator, action, entity, entityID, detail); err != nil {
			h.logger.Error("record audit trail", "error", err, "action", action, "entity", entity)
		}
	}()
}

// MountRoutes registers management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Users
	r.Get("/users", h.listUsers)
	r.Get("/users/new", h.showUserForm)
	r.Post("/users", h.createUser)
	r.Get("/users/{id}/edit", h.showEditUserForm)
	r.Post("/users/{id}/edit", h.updateUser)
	r.Post("/users/{id}/delete", h.deleteUser)

	// RFID cards
	r.Get("/rfid", h.listRFIDs)
	r.Get("/rfid/new", h.showRFIDForm)
	r.Post("/rfid", h.createRFID)
	r.Get("/rfid/{id}/edit", h.showEditRFIDForm)
	r.Post("/rfid/{id}/edit", h.updateRFID)
	r.Post("/rfid/{id}/delete", h.deleteRFID)

	// Rooms
	r.Get("/rooms", h.listRooms)
	r.Get("/rooms/new", h.showRoomForm)
	r.Post("/rooms", h.createRoom)
	r.Get("/rooms/{id}/edit", h.showEditRoomForm)
	r.Post("/rooms/{id}/edit", h.updateRoom)
	r.Post("/rooms/{id}/delete", h.deleteRoom)

	// Room access grants
	r.Get("/rooms/{id}/access", h.showRoomAccess)
	r.Post("/rooms/{id}/access", h.assignAccess)
	r.Post("/rooms/{id}/access/{grantID}/revoke", h.revokeAccess)

	// Operator logins
	r.Get("/users-login", h.listLogins)
	r.Get("/users-login/new", h.showLoginForm)
	r.Post("/users-login", h.createLogin)
	r.Get("/users-login/{id}/edit", h.showEditLoginForm)
	r.Post("/users-login/{id}/edit", h.updateLogin)
	r.Post("/users-login/{id}/delete", h.deleteLogin)
}

func (h *Handler) listQuery(r *http.Request) ListQuery {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return ListQuery{
		PageIndex: page - 1,
		PageSize:  10,
		Keyword:   strings.TrimSpace(r.URL.Query().Get("keyword")),
	}
}

// ============================================================================
// USER HANDLERS
// ============================================================================

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := h.listQuery(r)
	users, total, err := h.service.ListUsers(r.Context(), q)
	if err != nil {
		h.renderListError(w, r, err, "list users")
		return
	}
	h.render(w, r, "pages/users_list.html", "Manajemen User", map[string]any{
		"Users":      users,
		"Query":      q,
		"Pagination": shared.NewPagination(q.PageIndex+1, q.PageSize, total),
	})
}

func (h *Handler) showUserForm(w http.ResponseWriter, r *http.Request) {
	cards, err := h.service.UnassignedRFIDs(r.Context())
	if err != nil && shared.HandleBackendError(w, r, err) {
		return
	}
	h.render(w, r, "pages/user_form.html", "Tambah User", map[string]any{
		"Form":   UserForm{IsActive: true},
		"Errors": formErrors{},
		"Cards":  cards,
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseUserForm(r)
	if len(errs) > 0 {
		cards, _ := h.service.UnassignedRFIDs(r.Context())
		h.render(w, r, "pages/user_form.html", "Tambah User", map[string]any{
			"Form":   form,
			"Errors": errs,
			"Cards":  cards,
		})
		return
	}
	if err := h.service.CreateUser(r.Context(), form); err != nil {
		h.mutationError(w, r, err, "/users", "create user")
		return
	}
	h.record(r, "create", "user", "", form.Name)
	h.redirectWithFlash(w, r, "/users", "success", "User berhasil ditambahkan")
}

func (h *Handler) showEditUserForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	// The backend has no single-user read; find the row via its list. The
	// keyword from the referring page narrows the scan.
	users, _, err := h.service.ListUsers(r.Context(), ListQuery{
		PageSize: 100,
		Keyword:  strings.TrimSpace(r.URL.Query().Get("keyword")),
	})
	if err != nil {
		h.renderListError(w, r, err, "load user")
		return
	}
	var target *User
	for i := range users {
		if users[i].ID == id {
			target = &users[i]
			break
		}
	}
	if target == nil {
		http.NotFound(w, r)
		return
	}
	cards, _ := h.service.UnassignedRFIDs(r.Context())
	form := UserForm{Name: target.Name, EmpNumber: target.EmpNumber, IsActive: target.IsActive}
	if target.RFID != nil {
		form.RFIDID = &target.RFID.ID
	}
	h.render(w, r, "pages/user_form.html", "Ubah User", map[string]any{
		"Form":   form,
		"Errors": formErrors{},
		"Cards":  cards,
		"EditID": id,
	})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	form, errs := h.parseUserForm(r)
	if len(errs) > 0 {
		cards, _ := h.service.UnassignedRFIDs(r.Context())
		h.render(w, r, "pages/user_form.html", "Ubah User", map[string]any{
			"Form":   form,
			"Errors": errs,
			"Cards":  cards,
			"EditID": id,
		})
		return
	}
	if err := h.service.UpdateUser(r.Context(), id, form); err != nil {
		h.mutationError(w, r, err, "/users", "update user")
		return
	}
	h.record(r, "update", "user", strconv.FormatInt(id, 10), form.Name)
	h.redirectWithFlash(w, r, "/users", "success", "User berhasil diperbarui")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.mutationError(w, r, err, "/users", "delete user")
		return
	}
	h.record(r, "delete", "user", strconv.FormatInt(id, 10), "")
	h.redirectWithFlash(w, r, "/users", "success", "User berhasil dihapus")
}

func (h *Handler) parseUserForm(r *http.Request) (UserForm, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Formulir tidak valid"
		return UserForm{}, errs
	}
	form := UserForm{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		EmpNumber: strings.TrimSpace(r.PostFormValue("emp_number")),
		IsActive:  r.PostFormValue("is_active") == "on",
	}
	if raw := r.PostFormValue("rfid_id"); raw != "" {
		if cardID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			form.RFIDID = &cardID
		} else {
			errs["rfid_id"] = "Kartu RFID tidak valid"
		}
	}
	h.validate(form, errs)
	return form, errs
}

// ============================================================================
// RFID HANDLERS
// ============================================================================

func (h *Handler) listRFIDs(w http.ResponseWriter, r *http.Request) {
	q := h.listQuery(r)
	cards, total, err := h.service.ListRFIDs(r.Context(), q)
	if err != nil {
		h.renderListError(w, r, err, "list rfid")
		return
	}
	h.render(w, r, "pages/rfid_list.html", "Manajemen RFID", map[string]any{
		"Cards":      cards,
		"Query":      q,
		"Pagination": shared.NewPagination(q.PageIndex+1, q.PageSize, total),
	})
}

func (h *Handler) showRFIDForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/rfid_form.html", "Tambah RFID", map[string]any{
		"Form":   RFIDForm{IsActive: true},
		"Errors": formErrors{},
	})
}

func (h *Handler) createRFID(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseRFIDForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/rfid_form.html", "Tambah RFID", map[string]any{
			"Form":   form,
			"Errors": errs,
		})
		return
	}
	if err := h.service.CreateRFID(r.Context(), form); err != nil {
		h.mutationError(w, r, err, "/rfid", "create rfid")
		return
	}
	h.record(r, "create", "rfid", "", form.Number)
	h.redirectWithFlash(w, r, "/rfid", "success", "Kartu RFID berhasil ditambahkan")
}

func (h *Handler) showEditRFIDForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid RFID ID", http.StatusBadRequest)
		return
	}
	h.render(w, r, "pages/rfid_form.html", "Ubah RFID", map[string]any{
		"Form":   RFIDForm{},
		"Errors": formErrors{},
		"EditID": id,
	})
}

func (h *Handler) updateRFID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid RFID ID", http.StatusBadRequest)
		return
	}
	form, errs := h.parseRFIDForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/rfid_form.html", "Ubah RFID", map[string]any{
			"Form":   form,
			"Errors": errs,
			"EditID": id,
		})
		return
	}
	if err := h.service.UpdateRFID(r.Context(), id, form); err != nil {
		h.mutationError(w, r, err, "/rfid", "update rfid")
		return
	}
	h.record(r, "update", "rfid", strconv.FormatInt(id, 10), form.Number)
	h.redirectWithFlash(w, r, "/rfid", "success", "Kartu RFID berhasil diperbarui")
}

func (h *Handler) deleteRFID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid RFID ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteRFID(r.Context(), id); err != nil {
		h.mutationError(w, r, err, "/rfid", "delete rfid")
		return
	}
	h.record(r, "delete", "rfid", strconv.FormatInt(id, 10), "")
	h.redirectWithFlash(w, r, "/rfid", "success", "Kartu RFID berhasil dihapus")
}

func (h *Handler) parseRFIDForm(r *http.Request) (RFIDForm, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Formulir tidak valid"
		return RFIDForm{}, errs
	}
	form := RFIDForm{
		Number:   strings.TrimSpace(r.PostFormValue("number")),
		IsActive: r.PostFormValue("is_active") == "on",
	}
	h.validate(form, errs)
	return form, errs
}

// ============================================================================
// ROOM HANDLERS
// ============================================================================

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	q := h.listQuery(r)
	rooms, total, err := h.service.ListRooms(r.Context(), q)
	if err != nil {
		h.renderListError(w, r, err, "list rooms")
		return
	}
	h.render(w, r, "pages/rooms_list.html", "Manajemen Ruangan", map[string]any{
		"Rooms":      rooms,
		"Query":      q,
		"Pagination": shared.NewPagination(q.PageIndex+1, q.PageSize, total),
	})
}

func (h *Handler) showRoomForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/room_form.html", "Tambah Ruangan", map[string]any{
		"Form":   RoomForm{},
		"Errors": formErrors{},
	})
}

func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseRoomForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/room_form.html", "Tambah Ruangan", map[string]any{
			"Form":   form,
			"Errors": errs,
		})
		return
	}
	if err := h.service.CreateRoom(r.Context(), form); err != nil {
		h.mutationError(w, r, err, "/rooms", "create room")
		return
	}
	h.record(r, "create", "room", "", form.Name)
	h.redirectWithFlash(w, r, "/rooms", "success", "Ruangan berhasil ditambahkan")
}

func (h *Handler) showEditRoomForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}
	h.render(w, r, "pages/room_form.html", "Ubah Ruangan", map[string]any{
		"Form":   RoomForm{},
		"Errors": formErrors{},
		"EditID": id,
	})
}

func (h *Handler) updateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}
	form, errs := h.parseRoomForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/room_form.html", "Ubah Ruangan", map[string]any{
			"Form":   form,
			"Errors": errs,
			"EditID": id,
		})
		return
	}
	if err := h.service.UpdateRoom(r.Context(), id, form); err != nil {
		h.mutationError(w, r, err, "/rooms", "update room")
		return
	}
	h.record(r, "update", "room", strconv.FormatInt(id, 10), form.Name)
	h.redirectWithFlash(w, r, "/rooms", "success", "Ruangan berhasil diperbarui")
}

func (h *Handler) deleteRoom(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteRoom(r.Context(), id); err != nil {
		h.mutationError(w, r, err, "/rooms", "delete room")
		return
	}
	h.record(r, "delete", "room", strconv.FormatInt(id, 10), "")
	h.redirectWithFlash(w, r, "/rooms", "success", "Ruangan berhasil dihapus")
}

func (h *Handler) parseRoomForm(r *http.Request) (RoomForm, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Formulir tidak valid"
		return RoomForm{}, errs
	}
	form := RoomForm{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		Secret:    r.PostFormValue("secret"),
		IPAddress: strings.TrimSpace(r.PostFormValue("ip_address")),
	}
	h.validate(form, errs)
	if _, ok := errs["Secret"]; ok {
		errs["Secret"] = "Password ruangan minimal 8 karakter"
	}
	if _, ok := errs["Name"]; ok {
		errs["Name"] = "Nama ruangan tidak boleh kosong"
	}
	return form, errs
}

// ============================================================================
// ROOM ACCESS HANDLERS
// ============================================================================

func (h *Handler) showRoomAccess(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}
	q := h.listQuery(r)
	grants, total, err := h.service.AccessList(r.Context(), roomID, q)
	if err != nil {
		h.renderListError(w, r, err, "list room access")
		return
	}

	var candidates []User
	if keyword := strings.TrimSpace(r.URL.Query().Get("candidate")); keyword != "" {
		candidates, err = h.service.UnassignedUsers(r.Context(), roomID, keyword)
		if err != nil && shared.HandleBackendError(w, r, err) {
			return
		}
	}

	h.render(w, r, "pages/room_access.html", "Kelola Akses Ruangan", map[string]any{
		"RoomID":     roomID,
		"Grants":     grants,
		"Candidates": candidates,
		"Query":      q,
		"Pagination": shared.NewPagination(q.PageIndex+1, q.PageSize, total),
	})
}

func (h *Handler) assignAccess(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(r.PostFormValue("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	back := "/rooms/" + strconv.FormatInt(roomID, 10) + "/access"
	if err := h.service.AssignAccess(r.Context(), roomID, userID); err != nil {
		h.mutationError(w, r, err, back, "assign access")
		return
	}
	h.record(r, "assign", "room_access", strconv.FormatInt(roomID, 10), "user "+strconv.FormatInt(userID, 10))
	h.redirectWithFlash(w, r, back, "success", "Akses berhasil diberikan")
}

func (h *Handler) revokeAccess(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}
	grantID, err := strconv.ParseInt(chi.URLParam(r, "grantID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid grant ID", http.StatusBadRequest)
		return
	}
	back := "/rooms/" + strconv.FormatInt(roomID, 10) + "/access"
	if err := h.service.RevokeAccess(r.Context(), grantID); err != nil {
		h.mutationError(w, r, err, back, "revoke access")
		return
	}
	h.record(r, "revoke", "room_access", strconv.FormatInt(roomID, 10), "grant "+strconv.FormatInt(grantID, 10))
	h.redirectWithFlash(w, r, back, "success", "Akses berhasil dicabut")
}

// ============================================================================
// OPERATOR LOGIN HANDLERS
// ============================================================================

func (h *Handler) listLogins(w http.ResponseWriter, r *http.Request) {
	q := h.listQuery(r)
	logins, total, err := h.service.ListLogins(r.Context(), q)
	if err != nil {
		h.renderListError(w, r, err, "list logins")
		return
	}
	h.render(w, r, "pages/logins_list.html", "Manajemen Login", map[string]any{
		"Logins":     logins,
		"Query":      q,
		"Pagination": shared.NewPagination(q.PageIndex+1, q.PageSize, total),
	})
}

func (h *Handler) showLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/login_form.html", "Tambah Login", map[string]any{
		"Form":   LoginForm{IsActive: true},
		"Errors": formErrors{},
	})
}

func (h *Handler) createLogin(w http.ResponseWriter, r *http.Request) {
	form, errs := h.parseLoginForm(r)
	if form.Password == "" {
		errs["Password"] = "Password wajib diisi"
	}
	if len(errs) > 0 {
		h.render(w, r, "pages/login_form.html", "Tambah Login", map[string]any{
			"Form":   form,
			"Errors": errs,
		})
		return
	}
	if err := h.service.RegisterLogin(r.Context(), form); err != nil {
		h.mutationError(w, r, err, "/users-login", "create login")
		return
	}
	h.record(r, "create", "login", "", form.Username)
	h.redirectWithFlash(w, r, "/users-login", "success", "Login berhasil ditambahkan")
}

func (h *Handler) showEditLoginForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid login ID", http.StatusBadRequest)
		return
	}
	h.render(w, r, "pages/login_form.html", "Ubah Login", map[string]any{
		"Form":   LoginForm{},
		"Errors": formErrors{},
		"EditID": id,
	})
}

func (h *Handler) updateLogin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid login ID", http.StatusBadRequest)
		return
	}
	form, errs := h.parseLoginForm(r)
	if len(errs) > 0 {
		h.render(w, r, "pages/login_form.html", "Ubah Login", map[string]any{
			"Form":   form,
			"Errors": errs,
			"EditID": id,
		})
		return
	}
	if err := h.service.UpdateLogin(r.Context(), id, form); err != nil {
		h.mutationError(w, r, err, "/users-login", "update login")
		return
	}
	h.record(r, "update", "login", strconv.FormatInt(id, 10), form.Username)
	h.redirectWithFlash(w, r, "/users-login", "success", "Login berhasil diperbarui")
}

func (h *Handler) deleteLogin(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid login ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteLogin(r.Context(), id); err != nil {
		h.mutationError(w, r, err, "/users-login", "delete login")
		return
	}
	h.record(r, "delete", "login", strconv.FormatInt(id, 10), "")
	h.redirectWithFlash(w, r, "/users-login", "success", "Login berhasil dihapus")
}

func (h *Handler) parseLoginForm(r *http.Request) (LoginForm, formErrors) {
	errs := make(formErrors)
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Formulir tidak valid"
		return LoginForm{}, errs
	}
	form := LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
		IsActive: r.PostFormValue("is_active") == "on",
	}
	h.validate(form, errs)
	return form, errs
}

// ============================================================================
// SHARED HELPERS
// ============================================================================

func (h *Handler) validate(form any, errs formErrors) {
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
}

// renderListError applies the shared redirect policy; data-level failures fall
// through to a plain error page instead of crashing the listing.
func (h *Handler) renderListError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if shared.HandleBackendError(w, r, err) {
		return
	}
	h.logger.Error(action+" failed", "error", err)
	http.Error(w, "Gagal memuat data.", http.StatusInternalServerError)
}

func (h *Handler) mutationError(w http.ResponseWriter, r *http.Request, err error, back, action string) {
	if shared.HandleBackendError(w, r, err) {
		return
	}
	h.logger.Error(action+" failed", "error", err)
	h.redirectWithFlash(w, r, back, "error", "Permintaan gagal diproses")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any) {
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
		Title:       title,
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

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
