package audit

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit trail from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func buildWhere(filters Filters) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Actor != "" {
		argCount++
		where += ` AND actor = $` + strconv.Itoa(argCount)
		args = append(args, filters.Actor)
	}
	if filters.Entity != "" {
		argCount++
		where += ` AND entity = $` + strconv.Itoa(argCount)
		args = append(args, filters.Entity)
	}
	if filters.Action != "" {
		argCount++
		where += ` AND action = $` + strconv.Itoa(argCount)
		args = append(args, filters.Action)
	}
	if !filters.From.IsZero() {
		argCount++
		where += ` AND occurred_at >= $` + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if !filters.To.IsZero() {
		argCount++
		where += ` AND occurred_at <= $` + strconv.Itoa(argCount)
		args = append(args, filters.To)
	}
	return where, args
}

// List returns entries matching the filter, newest first. It fetches limit
// rows starting at offset; callers probe hasNext by asking for one extra row.
func (r *Repository) List(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	where, args := buildWhere(filters)
	limitArg := strconv.Itoa(len(args) + 1)
	offsetArg := strconv.Itoa(len(args) + 2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, `SELECT id, actor, action, entity, COALESCE(entity_id,''), meta, occurred_at
FROM audit_logs`+where+` ORDER BY occurred_at DESC, id DESC LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			metaRaw []byte
			at      time.Time
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &e.EntityID, &metaRaw, &at); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &e.Meta)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
