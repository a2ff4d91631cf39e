package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-console/gatehouse/internal/backend"
	"github.com/gatehouse-console/gatehouse/internal/shared"
)

// Identity is the authenticated operator as the console tracks it.
type Identity struct {
	Token      string
	ExpiresAt  time.Time
	Username   string
	Role       string
	Breakglass bool
}

// Service wraps operator authentication. Normal logins are delegated to the
// backend; when the backend is down a single local break-glass credential can
// still open the console in read-only mode.
type Service struct {
	client         *backend.Client
	breakglassUser string
	breakglassHash []byte
}

// NewService constructs a new Service. An empty breakglass hash disables the
// break-glass path entirely.
func NewService(client *backend.Client, breakglassUser, breakglassHash string) *Service {
	return &Service{
		client:         client,
		breakglassUser: breakglassUser,
		breakglassHash: []byte(breakglassHash),
	}
}

// Authenticate exchanges credentials for a bearer token. Invalid credentials
// map to shared.ErrInvalidCredentials; an unreachable backend propagates
// backend.ErrUnreachable unless the break-glass credential matches.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	result, err := s.client.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, backend.ErrUnreachable) {
			if id, ok := s.breakglass(username, password); ok {
				return id, nil
			}
			return Identity{}, err
		}
		return Identity{}, shared.ErrInvalidCredentials
	}

	expiresAt, _ := backend.TokenExpiry(result.AccessToken)
	return Identity{
		Token:     result.AccessToken,
		ExpiresAt: expiresAt,
		Username:  result.User.Username,
		Role:      result.User.Role,
	}, nil
}

func (s *Service) breakglass(username, password string) (Identity, bool) {
	if len(s.breakglassHash) == 0 || username != s.breakglassUser {
		return Identity{}, false
	}
	if err := bcrypt.CompareHashAndPassword(s.breakglassHash, []byte(password)); err != nil {
		return Identity{}, false
	}
	return Identity{
		Username:   username,
		Role:       "breakglass",
		Breakglass: true,
	}, true
}
