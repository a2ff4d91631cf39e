package accesslog

import (
	"context"

	"github.com/gatehouse-console/gatehouse/internal/backend"
)

const listPath = "/access-log/access-list"

// Service fetches access events from the backend API.
type Service struct {
	client *backend.Client
}

// NewService constructs a Service.
func NewService(client *backend.Client) *Service {
	return &Service{client: client}
}

// FetchPage retrieves one page of events. The query key is sent verbatim as
// the request query string.
func (s *Service) FetchPage(ctx context.Context, q Query) ([]Event, int, error) {
	return backend.List[Event](ctx, s.client, listPath, q.Key())
}

// FetchImage retrieves one face-capture image by filename.
func (s *Service) FetchImage(ctx context.Context, filename string) ([]byte, string, error) {
	return s.client.Image(ctx, filename)
}
