package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service coordinates recording and reading the audit trail.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends one operator action. The entry ID doubles as the idempotency
// key: callers retrying a failed submission pass the same ID and the insert
// collapses to a no-op.
func (s *Service) Record(ctx context.Context, id, operator, action, entity, entityID, detail string) error {
	if s == nil || s.repo == nil {
		return nil
	}
	if id == "" {
		id = uuid.NewString()
	}
	return s.repo.Insert(ctx, Entry{
		ID:       id,
		At:       time.Now().UTC(),
		Operator: operator,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	})
}

// Timeline reads one page. One extra row is fetched to decide HasNext without
// a count query.
func (s *Service) Timeline(ctx context.Context, filters Filters) (Result, error) {
	if s == nil || s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.Window(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// PurgeOlderThan applies the retention policy.
func (s *Service) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil || s.repo == nil {
		return 0, nil
	}
	return s.repo.Purge(ctx, time.Now().UTC().Add(-retention))
}
