package suppliers

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, id int64, supplier Supplier) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ErrNotFound indicates a missing supplier.
var ErrNotFound = errors.New("supplier not found")

const supplierColumns = `id, name, COALESCE(contact,''), COALESCE(email,''), COALESCE(phone,''), COALESCE(website,''),
COALESCE(address,''), COALESCE(postal_code,''), COALESCE(city,''), COALESCE(country,''),
latitude, longitude, COALESCE(comment,''), created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Email, &s.Phone, &s.Website,
		&s.Address, &s.PostalCode, &s.City, &s.Country,
		&s.Latitude, &s.Longitude, &s.Comment, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) +
			` OR city ILIKE $` + strconv.Itoa(argCount) +
			` OR contact ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + supplierColumns + ` FROM suppliers` + where
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

	var result []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, s)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrNotFound
		}
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers
(name, contact, email, phone, website, address, postal_code, city, country, latitude, longitude, comment, created_at, updated_at)
VALUES ($1,NULLIF($2,''),NULLIF($3,''),NULLIF($4,''),NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),$10,$11,NULLIF($12,''),NOW(),NOW())
RETURNING id, created_at, updated_at`,
		s.Name, s.Contact, s.Email, s.Phone, s.Website, s.Address, s.PostalCode, s.City, s.Country,
		s.Latitude, s.Longitude, s.Comment).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Supplier{}, err
	}
	return s, nil
}

func (r *repository) Update(ctx context.Context, id int64, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `UPDATE suppliers SET
name=$1, contact=NULLIF($2,''), email=NULLIF($3,''), phone=NULLIF($4,''), website=NULLIF($5,''),
address=NULLIF($6,''), postal_code=NULLIF($7,''), city=NULLIF($8,''), country=NULLIF($9,''),
latitude=$10, longitude=$11, comment=NULLIF($12,''), updated_at=NOW()
WHERE id=$13`,
		s.Name, s.Contact, s.Email, s.Phone, s.Website, s.Address, s.PostalCode, s.City, s.Country,
		s.Latitude, s.Longitude, s.Comment, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM suppliers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReferences counts product links and orders pointing at the supplier.
func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT
(SELECT COUNT(*) FROM product_suppliers WHERE supplier_id=$1) +
(SELECT COUNT(*) FROM orders WHERE supplier_id=$1)`, id).Scan(&count)
	return count, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "city":
		return "city " + dir + ", name ASC"
	case "name":
		return "name " + dir
	default:
		return "name " + dir
	}
}
