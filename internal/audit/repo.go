package audit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists and reads the operator audit trail.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert records an entry. Duplicate IDs (retried requests) are absorbed so a
// replayed form submission never produces two rows.
func (r *PGRepository) Insert(ctx context.Context, e Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_trail (id, at, operator, action, entity, entity_id, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.At, e.Operator, e.Action, e.Entity, e.EntityID, e.Detail)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return nil
		}
		return err
	}
	return nil
}

// Window reads one page of the timeline, newest first.
func (r *PGRepository) Window(ctx context.Context, filters Filters, offset, limit int) ([]Entry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, at, operator, action, entity, entity_id, detail FROM audit_trail WHERE 1=1`)
	args := make([]any, 0, 4)
	if op := strings.TrimSpace(filters.Operator); op != "" {
		args = append(args, op)
		query.WriteString(` AND operator = $` + strconv.Itoa(len(args)))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		args = append(args, action)
		query.WriteString(` AND action = $` + strconv.Itoa(len(args)))
	}
	args = append(args, limit)
	query.WriteString(` ORDER BY at DESC LIMIT $` + strconv.Itoa(len(args)))
	args = append(args, offset)
	query.WriteString(` OFFSET $` + strconv.Itoa(len(args)))

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.At, &e.Operator, &e.Action, &e.Entity, &e.EntityID, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purge removes entries older than the cutoff and reports how many went.
func (r *PGRepository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_trail WHERE at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
