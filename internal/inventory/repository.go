package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoam/stocks-backend/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional ledger operations used by the
// movement engine. Orders and packs compose with the engine through the
// same interface so their writes share one transaction.
type TxRepository interface {
	GetSite(ctx context.Context, id int64) (SiteRef, error)
	GetStockForUpdate(ctx context.Context, productID, siteID int64) (Stock, error)
	UpsertStock(ctx context.Context, stock Stock) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction with ledger operations.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

var (
	// ErrStockNotFound indicates a missing stock row.
	ErrStockNotFound = errors.New("inventory: stock row not found")
	// ErrSiteNotFound indicates the referenced site does not exist.
	ErrSiteNotFound = errors.New("inventory: site not found")
)

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

func (r *txRepository) GetSite(ctx context.Context, id int64) (SiteRef, error) {
	var ref SiteRef
	err := r.tx.QueryRow(ctx, `SELECT id, name, type, is_active FROM sites WHERE id=$1`, id).
		Scan(&ref.ID, &ref.Name, &ref.Type, &ref.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SiteRef{}, ErrSiteNotFound
		}
		return SiteRef{}, err
	}
	return ref, nil
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, productID, siteID int64) (Stock, error) {
	var s Stock
	err := r.tx.QueryRow(ctx, `SELECT id, product_id, site_id, quantity_new, quantity_used, updated_at
FROM stocks WHERE product_id=$1 AND site_id=$2 FOR UPDATE`, productID, siteID).
		Scan(&s.ID, &s.ProductID, &s.SiteID, &s.QuantityNew, &s.QuantityUsed, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stock{ProductID: productID, SiteID: siteID}, ErrStockNotFound
		}
		return Stock{}, err
	}
	return s, nil
}

func (r *txRepository) UpsertStock(ctx context.Context, stock Stock) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stocks (product_id, site_id, quantity_new, quantity_used, updated_at)
VALUES ($1,$2,$3,$4,NOW())
ON CONFLICT (product_id, site_id) DO UPDATE SET quantity_new=EXCLUDED.quantity_new, quantity_used=EXCLUDED.quantity_used, updated_at=NOW()`,
		stock.ProductID, stock.SiteID, stock.QuantityNew, stock.QuantityUsed)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, type, source_site_id, target_site_id, quantity, condition, movement_date, operator, comment, ref, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW()) RETURNING id`,
		m.ProductID, string(m.Type), m.SourceSiteID, m.TargetSiteID, m.Quantity, string(m.Condition), m.MovementDate, nullString(m.Operator), nullString(m.Comment), nullString(m.Ref)).Scan(&id)
	return id, err
}

// ListMovements returns movements matching the filter plus the total count.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Type != "" {
		argCount++
		where += ` AND m.type = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Type))
	}
	if filter.SiteID != 0 {
		argCount++
		where += ` AND (m.source_site_id = $` + strconv.Itoa(argCount) + ` OR m.target_site_id = $` + strconv.Itoa(argCount) + `)`
		args = append(args, filter.SiteID)
	}
	if filter.ProductID != 0 {
		argCount++
		where += ` AND m.product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}
	if !filter.From.IsZero() {
		argCount++
		where += ` AND m.movement_date >= $` + strconv.Itoa(argCount)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argCount++
		where += ` AND m.movement_date <= $` + strconv.Itoa(argCount)
		args = append(args, filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements m`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	argCount++
	limitArg := strconv.Itoa(argCount)
	argCount++
	offsetArg := strconv.Itoa(argCount)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, `SELECT m.id, m.product_id, m.type, m.source_site_id, m.target_site_id, m.quantity, m.condition,
m.movement_date, COALESCE(m.operator,''), COALESCE(m.comment,''), COALESCE(m.ref,''), m.created_at,
p.reference, COALESCE(src.name,''), COALESCE(dst.name,'')
FROM stock_movements m
JOIN products p ON p.id = m.product_id
LEFT JOIN sites src ON src.id = m.source_site_id
LEFT JOIN sites dst ON dst.id = m.target_site_id`+where+`
ORDER BY m.movement_date DESC, m.id DESC LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.SourceSiteID, &m.TargetSiteID, &m.Quantity, &m.Condition,
			&m.MovementDate, &m.Operator, &m.Comment, &m.Ref, &m.CreatedAt,
			&m.ProductReference, &m.SourceSiteName, &m.TargetSiteName); err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}

// GetMovement loads a single movement with resolved names.
func (r *Repository) GetMovement(ctx context.Context, id int64) (Movement, error) {
	var m Movement
	err := r.pool.QueryRow(ctx, `SELECT m.id, m.product_id, m.type, m.source_site_id, m.target_site_id, m.quantity, m.condition,
m.movement_date, COALESCE(m.operator,''), COALESCE(m.comment,''), COALESCE(m.ref,''), m.created_at,
p.reference, COALESCE(src.name,''), COALESCE(dst.name,'')
FROM stock_movements m
JOIN products p ON p.id = m.product_id
LEFT JOIN sites src ON src.id = m.source_site_id
LEFT JOIN sites dst ON dst.id = m.target_site_id
WHERE m.id = $1`, id).
		Scan(&m.ID, &m.ProductID, &m.Type, &m.SourceSiteID, &m.TargetSiteID, &m.Quantity, &m.Condition,
			&m.MovementDate, &m.Operator, &m.Comment, &m.Ref, &m.CreatedAt,
			&m.ProductReference, &m.SourceSiteName, &m.TargetSiteName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movement{}, ErrMovementNotFound
		}
		return Movement{}, err
	}
	return m, nil
}

// AvailableStock lists per-site quantities for a product. A zero siteID
// returns every storage site holding the product.
func (r *Repository) AvailableStock(ctx context.Context, productID, siteID int64) ([]SiteStock, error) {
	query := `SELECT s.site_id, st.name, s.quantity_new, s.quantity_used
FROM stocks s
JOIN sites st ON st.id = s.site_id
WHERE s.product_id = $1`
	args := []any{productID}
	if siteID != 0 {
		query += ` AND s.site_id = $2`
		args = append(args, siteID)
	}
	query += ` ORDER BY st.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []SiteStock{}
	for rows.Next() {
		var row SiteStock
		if err := rows.Scan(&row.SiteID, &row.SiteName, &row.QuantityNew, &row.QuantityUsed); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListStocks returns every stock row, used by exports.
func (r *Repository) ListStocks(ctx context.Context) ([]Stock, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, site_id, quantity_new, quantity_used, updated_at FROM stocks ORDER BY product_id, site_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := []Stock{}
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.ID, &s.ProductID, &s.SiteID, &s.QuantityNew, &s.QuantityUsed, &s.UpdatedAt); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
