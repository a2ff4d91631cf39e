package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	entries []Entry
	window  []Entry
	purged  time.Time
}

func (s *stubRepo) Insert(ctx context.Context, e Entry) error {
	for _, have := range s.entries {
		if have.ID == e.ID {
			return nil
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *stubRepo) Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error) {
	if offset >= len(s.window) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.window) {
		end = len(s.window)
	}
	return s.window[offset:end], nil
}

func (s *stubRepo) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.purged = olderThan
	return 3, nil
}

func TestRecordIsIdempotentByID(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	require.NoError(t, svc.Record(context.Background(), "req-1", "ops1", "delete", "user", "7", ""))
	require.NoError(t, svc.Record(context.Background(), "req-1", "ops1", "delete", "user", "7", ""))
	require.Len(t, repo.entries, 1)
}

func TestRecordGeneratesIDWhenEmpty(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	require.NoError(t, svc.Record(context.Background(), "", "ops1", "create", "room", "2", ""))
	require.Len(t, repo.entries, 1)
	require.NotEmpty(t, repo.entries[0].ID)
	require.False(t, repo.entries[0].At.IsZero())
}

func TestTimelinePagingWindow(t *testing.T) {
	repo := &stubRepo{}
	for i := 0; i < 25; i++ {
		repo.window = append(repo.window, Entry{ID: "e", Operator: "ops1"})
	}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{Page: 1})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	result, err = svc.Timeline(context.Background(), Filters{Page: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
}

func TestPurgeUsesRetentionCutoff(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	n, err := svc.PurgeOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), repo.purged, 5*time.Second)
}
