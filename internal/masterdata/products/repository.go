package products

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
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetByReference(ctx context.Context, reference string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int, error)

	ListLinks(ctx context.Context, productID int64) ([]ProductSupplier, error)
	GetLink(ctx context.Context, productID, supplierID int64) (ProductSupplier, error)
	CreateLink(ctx context.Context, link ProductSupplier) (ProductSupplier, error)
	UpdateLink(ctx context.Context, productID, supplierID int64, input LinkInput, priceChanged bool) error
	DeleteLink(ctx context.Context, productID, supplierID int64) error
	SetPrimary(ctx context.Context, productID, supplierID int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var (
	// ErrNotFound indicates a missing product.
	ErrNotFound = errors.New("product not found")
	// ErrDuplicateReference indicates the reference is already taken.
	ErrDuplicateReference = errors.New("a product with this reference already exists")
	// ErrLinkNotFound indicates a missing product-supplier link.
	ErrLinkNotFound = errors.New("product supplier link not found")
	// ErrLinkExists indicates the supplier is already linked.
	ErrLinkExists = errors.New("supplier already linked to this product")
)

const productColumns = `id, reference, COALESCE(description,''), qty_per_unit, COALESCE(supply_risk,''),
COALESCE(location,''), group_id, assembly_id, COALESCE(comment,''), COALESCE(image_url,''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Reference, &p.Description, &p.QtyPerUnit, &p.SupplyRisk,
		&p.Location, &p.GroupID, &p.AssemblyID, &p.Comment, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (reference ILIKE $` + strconv.Itoa(argCount) + ` OR description ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.GroupID != nil {
		argCount++
		where += ` AND group_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.GroupID)
	}
	if filters.AssemblyID != nil {
		argCount++
		where += ` AND assembly_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.AssemblyID)
	}
	if filters.SupplierID != nil {
		argCount++
		where += ` AND id IN (SELECT product_id FROM product_suppliers WHERE supplier_id = $` + strconv.Itoa(argCount) + `)`
		args = append(args, *filters.SupplierID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where
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

	var result []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	links, err := r.ListLinks(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Suppliers = links
	return p, nil
}

func (r *repository) GetByReference(ctx context.Context, reference string) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE reference=$1`, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products
(reference, description, qty_per_unit, supply_risk, location, group_id, assembly_id, comment, image_url, created_at, updated_at)
VALUES ($1,NULLIF($2,''),$3,NULLIF($4,''),NULLIF($5,''),$6,$7,NULLIF($8,''),NULLIF($9,''),NOW(),NOW())
RETURNING id, created_at, updated_at`,
		p.Reference, p.Description, p.QtyPerUnit, string(p.SupplyRisk), p.Location,
		p.GroupID, p.AssemblyID, p.Comment, p.ImageURL).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Product{}, ErrDuplicateReference
		}
		return Product{}, err
	}
	return p, nil
}

// Update never touches the reference column.
func (r *repository) Update(ctx context.Context, id int64, p Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET
description=NULLIF($1,''), qty_per_unit=$2, supply_risk=NULLIF($3,''), location=NULLIF($4,''),
group_id=$5, assembly_id=$6, comment=NULLIF($7,''), image_url=NULLIF($8,''), updated_at=NOW()
WHERE id=$9`,
		p.Description, p.QtyPerUnit, string(p.SupplyRisk), p.Location,
		p.GroupID, p.AssemblyID, p.Comment, p.ImageURL, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the product plus its zero-quantity stock rows and
// supplier links. Callers check movement/order references first.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM stocks WHERE product_id=$1 AND quantity_new=0 AND quantity_used=0`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM product_suppliers WHERE product_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// CountReferences counts movements, orders and non-empty stock rows
// that point at the product.
func (r *repository) CountReferences(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT
(SELECT COUNT(*) FROM stock_movements WHERE product_id=$1) +
(SELECT COUNT(*) FROM orders WHERE product_id=$1) +
(SELECT COUNT(*) FROM stocks WHERE product_id=$1 AND (quantity_new <> 0 OR quantity_used <> 0))`, id).Scan(&count)
	return count, err
}

const linkColumns = `ps.id, ps.product_id, ps.supplier_id, s.name, COALESCE(ps.supplier_ref,''),
ps.unit_price, ps.lead_time, COALESCE(ps.product_url,''), ps.shipping_cost, ps.is_primary, ps.price_updated_at`

func scanLink(row pgx.Row) (ProductSupplier, error) {
	var l ProductSupplier
	err := row.Scan(&l.ID, &l.ProductID, &l.SupplierID, &l.SupplierName, &l.SupplierRef,
		&l.UnitPrice, &l.LeadTime, &l.ProductURL, &l.ShippingCost, &l.IsPrimary, &l.PriceUpdatedAt)
	return l, err
}

func (r *repository) ListLinks(ctx context.Context, productID int64) ([]ProductSupplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+linkColumns+`
FROM product_suppliers ps JOIN suppliers s ON s.id = ps.supplier_id
WHERE ps.product_id=$1 ORDER BY ps.is_primary DESC, s.name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []ProductSupplier{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *repository) GetLink(ctx context.Context, productID, supplierID int64) (ProductSupplier, error) {
	l, err := scanLink(r.pool.QueryRow(ctx, `SELECT `+linkColumns+`
FROM product_suppliers ps JOIN suppliers s ON s.id = ps.supplier_id
WHERE ps.product_id=$1 AND ps.supplier_id=$2`, productID, supplierID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductSupplier{}, ErrLinkNotFound
		}
		return ProductSupplier{}, err
	}
	return l, nil
}

func (r *repository) CreateLink(ctx context.Context, link ProductSupplier) (ProductSupplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO product_suppliers
(product_id, supplier_id, supplier_ref, unit_price, lead_time, product_url, shipping_cost, is_primary, price_updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,NULLIF($6,''),$7,$8, CASE WHEN $4::numeric IS NULL THEN NULL ELSE NOW() END)
RETURNING id, price_updated_at`,
		link.ProductID, link.SupplierID, link.SupplierRef, link.UnitPrice, link.LeadTime,
		link.ProductURL, link.ShippingCost, link.IsPrimary).
		Scan(&link.ID, &link.PriceUpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ProductSupplier{}, ErrLinkExists
			case "23503":
				return ProductSupplier{}, ErrNotFound
			}
		}
		return ProductSupplier{}, err
	}
	return link, nil
}

// UpdateLink updates mutable link fields. priceUpdatedAt is bumped only
// when the unit price actually changed.
func (r *repository) UpdateLink(ctx context.Context, productID, supplierID int64, input LinkInput, priceChanged bool) error {
	query := `UPDATE product_suppliers SET
supplier_ref=NULLIF($1,''), unit_price=$2, lead_time=$3, product_url=NULLIF($4,''), shipping_cost=$5`
	if priceChanged {
		query += `, price_updated_at=NOW()`
	}
	query += ` WHERE product_id=$6 AND supplier_id=$7`

	tag, err := r.pool.Exec(ctx, query,
		input.SupplierRef, input.UnitPrice, input.LeadTime, input.ProductURL, input.ShippingCost,
		productID, supplierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (r *repository) DeleteLink(ctx context.Context, productID, supplierID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM product_suppliers WHERE product_id=$1 AND supplier_id=$2`, productID, supplierID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// SetPrimary flips the primary flag in one statement so two concurrent
// calls can never leave two primaries set.
func (r *repository) SetPrimary(ctx context.Context, productID, supplierID int64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM product_suppliers WHERE product_id=$1 AND supplier_id=$2)`, productID, supplierID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrLinkNotFound
	}
	_, err := r.pool.Exec(ctx, `UPDATE product_suppliers SET is_primary = (supplier_id = $2) WHERE product_id = $1`, productID, supplierID)
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "reference":
		return "reference " + dir
	case "updated":
		return "updated_at " + dir
	default:
		return "reference " + dir
	}
}
