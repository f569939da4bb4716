package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/platform/db"
)

// TxStore exposes the transactional order operations plus the ledger of
// the same transaction, so a receive commits order state and stock
// together.
type TxStore interface {
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	MarkReceived(ctx context.Context, id int64, receivedDate time.Time, receivedQty int, destinationSiteID int64) error
	MarkCancelled(ctx context.Context, id int64) error
	Ledger() inventory.TxRepository
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) Ledger() inventory.TxRepository {
	return inventory.NewTxRepository(s.tx)
}

const orderColumns = `o.id, o.product_id, o.supplier_id, o.quantity, o.status, o.order_date,
o.expected_date, o.received_date, o.received_qty, o.destination_site_id,
COALESCE(o.responsible,''), COALESCE(o.supplier_ref,''), COALESCE(o.comment,''), o.created_at, o.updated_at`

func scanOrder(row pgx.Row, withNames bool) (Order, error) {
	var o Order
	dest := []any{&o.ID, &o.ProductID, &o.SupplierID, &o.Quantity, &o.Status, &o.OrderDate,
		&o.ExpectedDate, &o.ReceivedDate, &o.ReceivedQty, &o.DestinationSiteID,
		&o.Responsible, &o.SupplierRef, &o.Comment, &o.CreatedAt, &o.UpdatedAt}
	if withNames {
		dest = append(dest, &o.ProductReference, &o.SupplierName)
	}
	err := row.Scan(dest...)
	return o, err
}

func (s *txStore) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(s.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id=$1 FOR UPDATE`, id), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (s *txStore) MarkReceived(ctx context.Context, id int64, receivedDate time.Time, receivedQty int, destinationSiteID int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE orders SET status=$1, received_date=$2, received_qty=$3, destination_site_id=$4, updated_at=NOW() WHERE id=$5`,
		string(StatusCompleted), receivedDate, receivedQty, destinationSiteID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *txStore) MarkCancelled(ctx context.Context, id int64) error {
	tag, err := s.tx.Exec(ctx, `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, string(StatusCancelled), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a pending order.
func (r *Repository) Create(ctx context.Context, o Order) (Order, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO orders
(product_id, supplier_id, quantity, status, order_date, expected_date, destination_site_id, responsible, supplier_ref, comment, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NOW(),NOW())
RETURNING id, created_at, updated_at`,
		o.ProductID, o.SupplierID, o.Quantity, string(o.Status), o.OrderDate, o.ExpectedDate,
		o.DestinationSiteID, o.Responsible, o.SupplierRef, o.Comment).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get loads one order with resolved names.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+`, p.reference, s.name
FROM orders o
JOIN products p ON p.id = o.product_id
JOIN suppliers s ON s.id = o.supplier_id
WHERE o.id=$1`, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

// List returns orders matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Order, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Status != "" {
		argCount++
		where += ` AND o.status = $` + strconv.Itoa(argCount)
		args = append(args, string(filter.Status))
	}
	if filter.SupplierID != 0 {
		argCount++
		where += ` AND o.supplier_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.SupplierID)
	}
	if filter.ProductID != 0 {
		argCount++
		where += ` AND o.product_id = $` + strconv.Itoa(argCount)
		args = append(args, filter.ProductID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o`+where, args...).Scan(&total); err != nil {
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

	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+`, p.reference, s.name
FROM orders o
JOIN products p ON p.id = o.product_id
JOIN suppliers s ON s.id = o.supplier_id`+where+`
ORDER BY o.order_date DESC, o.id DESC LIMIT $`+limitArg+` OFFSET $`+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows, true)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, o)
	}
	return result, total, rows.Err()
}
