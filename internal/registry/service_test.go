package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/registry"
	_ "github.com/gatehouse-console/gatehouse/testing"
)

func TestListUsersBuildsQueryAndDecodes(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/users", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[{"id":7,"name":"Budi","emp_number":"E-007","is_active":true,"rfid":{"id":3,"number":"CARD-3"}}],"count":14}`))
	}))
	defer srv.Close()

	svc := registry.NewService(backend.NewClient(srv.URL, 5*time.Second))
	users, total, err := svc.ListUsers(context.Background(), registry.ListQuery{PageIndex: 1, PageSize: 10, Keyword: "bu di"})
	require.NoError(t, err)
	require.Equal(t, "limit=10&offset=10&keyword=bu+di", gotQuery)
	require.Equal(t, 14, total)
	require.Len(t, users, 1)
	require.Equal(t, "Budi", users[0].Name)
	require.NotNil(t, users[0].RFID)
	require.Equal(t, int64(3), users[0].RFID.ID)
}

func TestMutationsHitOriginalPaths(t *testing.T) {
	type call struct {
		method string
		path   string
	}
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, call{method: r.Method, path: r.URL.Path})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"ok"}`))
	}))
	defer srv.Close()

	svc := registry.NewService(backend.NewClient(srv.URL, 5*time.Second))
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, registry.RoomForm{Name: "Server Room", Secret: "supersecret", IPAddress: "10.0.0.5"}))
	require.NoError(t, svc.UpdateRoom(ctx, 4, registry.RoomForm{Name: "Server Room", Secret: "supersecret", IPAddress: "10.0.0.5"}))
	require.NoError(t, svc.DeleteRoom(ctx, 4))
	require.NoError(t, svc.DeleteRFID(ctx, 9))
	require.NoError(t, svc.RegisterLogin(ctx, registry.LoginForm{Username: "ops1", Password: "longenough", Role: "ADMIN"}))
	require.NoError(t, svc.AssignAccess(ctx, 2, 11))
	require.NoError(t, svc.RevokeAccess(ctx, 31))

	want := []call{
		{http.MethodPost, "/api/v1/rooms/create"},
		{http.MethodPatch, "/api/v1/rooms/update/4"},
		{http.MethodDelete, "/api/v1/rooms/delete/4"},
		{http.MethodDelete, "/api/v1/rfid/delete/9"},
		{http.MethodPost, "/api/v1/users_login/register"},
		{http.MethodPost, "/api/v1/users-rooms/assign"},
		{http.MethodDelete, "/api/v1/users-rooms/unassign/31"},
	}
	require.Equal(t, want, calls)
}

func TestAssignAccessPayload(t *testing.T) {
	var payload map[string]int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	svc := registry.NewService(backend.NewClient(srv.URL, 5*time.Second))
	require.NoError(t, svc.AssignAccess(context.Background(), 2, 11))
	require.Equal(t, int64(2), payload["room_id"])
	require.Equal(t, int64(11), payload["user_id"])
}
