package registry

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gatehouse-console/gatehouse/internal/backend"
)

// Service proxies entity CRUD to the backend API.
type Service struct {
	client *backend.Client
}

// NewService constructs a Service.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// Users

func (s *Service) ListUsers(ctx context.Context, q ListQuery) ([]User, int, error) {
	return backend.List[User](ctx, s.client, "/users", q.RawQuery())
}

func (s *Service) CreateUser(ctx context.Context, form UserForm) error {
	_, err := s.client.PostJSON(ctx, "/users/create", form)
	return err
}

func (s *Service) UpdateUser(ctx context.Context, id int64, form UserForm) error {
	_, err := s.client.PatchJSON(ctx, fmt.Sprintf("/users/update/%d", id), form)
	return err
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.client.Delete(ctx, fmt.Sprintf("/users/delete/%d", id))
	return err
}

// UnassignedRFIDs lists cards not yet linked to any user, for the user form's
// card picker.
func (s *Service) UnassignedRFIDs(ctx context.Context) ([]RFIDCard, error) {
	cards, _, err := backend.List[RFIDCard](ctx, s.client, "/rfid/getUnassigned", "")
	return cards, err
}

// RFID cards

func (s *Service) ListRFIDs(ctx context.Context, q ListQuery) ([]RFIDCard, int, error) {
	return backend.List[RFIDCard](ctx, s.client, "/rfid", q.RawQuery())
}

func (s *Service) CreateRFID(ctx context.Context, form RFIDForm) error {
	_, err := s.client.PostJSON(ctx, "/rfid/create", form)
	return err
}

func (s *Service) UpdateRFID(ctx context.Context, id int64, form RFIDForm) error {
	_, err := s.client.PatchJSON(ctx, fmt.Sprintf("/rfid/update/%d", id), form)
	return err
}

func (s *Service) DeleteRFID(ctx context.Context, id int64) error {
	_, err := s.client.Delete(ctx, fmt.Sprintf("/rfid/delete/%d", id))
	return err
}

// Rooms

func (s *Service) ListRooms(ctx context.Context, q ListQuery) ([]Room, int, error) {
	return backend.List[Room](ctx, s.client, "/rooms", q.RawQuery())
}

func (s *Service) CreateRoom(ctx context.Context, form RoomForm) error {
	_, err := s.client.PostJSON(ctx, "/rooms/create", form)
	return err
}

func (s *Service) UpdateRoom(ctx context.Context, id int64, form RoomForm) error {
	_, err := s.client.PatchJSON(ctx, fmt.Sprintf("/rooms/update/%d", id), form)
	return err
}

func (s *Service) DeleteRoom(ctx context.Context, id int64) error {
	_, err := s.client.Delete(ctx, fmt.Sprintf("/rooms/delete/%d", id))
	return err
}

// Operator logins

func (s *Service) ListLogins(ctx context.Context, q ListQuery) ([]Login, int, error) {
	return backend.List[Login](ctx, s.client, "/users_login", q.RawQuery())
}

func (s *Service) RegisterLogin(ctx context.Context, form LoginForm) error {
	_, err := s.client.PostJSON(ctx, "/users_login/register", form)
	return err
}

func (s *Service) UpdateLogin(ctx context.Context, id int64, form LoginForm) error {
	_, err := s.client.PatchJSON(ctx, fmt.Sprintf("/users_login/update/%d", id), form)
	return err
}

func (s *Service) DeleteLogin(ctx context.Context, id int64) error {
	_, err := s.client.Delete(ctx, fmt.Sprintf("/users_login/delete/%d", id))
	return err
}

// Room access grants

func (s *Service) AccessList(ctx context.Context, roomID int64, q ListQuery) ([]AccessUser, int, error) {
	return backend.List[AccessUser](ctx, s.client, fmt.Sprintf("/users-rooms/accessList/%d", roomID), q.RawQuery())
}

// UnassignedUsers lists users without access to the room, filtered by
// keyword, for the grant picker.
func (s *Service) UnassignedUsers(ctx context.Context, roomID int64, keyword string) ([]User, error) {
	raw := ""
	if keyword != "" {
		raw = "keyword=" + url.QueryEscape(keyword)
	}
	users, _, err := backend.List[User](ctx, s.client, fmt.Sprintf("/users-rooms/getUnassigned/%d", roomID), raw)
	return users, err
}

func (s *Service) AssignAccess(ctx context.Context, roomID, userID int64) error {
	payload := map[string]int64{"room_id": roomID, "user_id": userID}
	_, err := s.client.PostJSON(ctx, "/users-rooms/assign", payload)
	return err
}

// RevokeAccess removes a grant by its grant id.
func (s *Service) RevokeAccess(ctx context.Context, grantID int64) error {
	_, err := s.client.Delete(ctx, fmt.Sprintf("/users-rooms/unassign/%d", grantID))
	return err
}
