package sites

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error)
	Get(ctx context.Context, id int64) (Site, error)
	Create(ctx context.Context, site Site) (Site, error)
	Update(ctx context.Context, id int64, site Site) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var (
	// ErrNotFound indicates a missing site.
	ErrNotFound = errors.New("site not found")
	// ErrDuplicateName indicates a name+type collision.
	ErrDuplicateName = errors.New("a site with this name and type already exists")
)

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Type != "" {
		argCount++
		where += ` AND type = $` + strconv.Itoa(argCount)
		args = append(args, filters.Type)
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR address ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sites`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, name, type, COALESCE(address,''), is_active, created_at, updated_at FROM sites` + where
	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

	limit := filters.Limit
	if limit < 1 {
		limit = shared.DefaultLimit
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Type, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, s)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Site, error) {
	var s Site
	err := r.pool.QueryRow(ctx, `SELECT id, name, type, COALESCE(address,''), is_active, created_at, updated_at FROM sites WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Type, &s.Address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Site{}, ErrNotFound
		}
		return Site{}, err
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, site Site) (Site, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO sites (name, type, address, is_active, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		site.Name, string(site.Type), site.Address, site.IsActive).
		Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Site{}, ErrDuplicateName
		}
		return Site{}, err
	}
	return site, nil
}

func (r *repository) Update(ctx context.Context, id int64, site Site) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sites SET name=$1, type=$2, address=NULLIF($3,''), is_active=$4, updated_at=NOW() WHERE id=$5`,
		site.Name, string(site.Type), site.Address, site.IsActive, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateName
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sites WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReferences counts ledger rows that point at the site: non-empty
// stock rows plus movements naming it as source or target.
func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT
(SELECT COUNT(*) FROM stocks WHERE site_id=$1 AND (quantity_new <> 0 OR quantity_used <> 0)) +
(SELECT COUNT(*) FROM stock_movements WHERE source_site_id=$1 OR target_site_id=$1)`, id).Scan(&count)
	return count, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "type":
		return "type " + dir + ", name ASC"
	case "name":
		return "name " + dir
	default:
		return "name " + dir
	}
}
