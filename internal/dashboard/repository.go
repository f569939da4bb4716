package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *Repository) CountProducts(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM products`)
}

func (r *Repository) CountSites(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM sites WHERE is_active`)
}

func (r *Repository) CountSuppliers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM suppliers`)
}

func (r *Repository) TotalStockUnits(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COALESCE(SUM(quantity_new + quantity_used), 0) FROM stocks`)
}

func (r *Repository) CountPendingOrders(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM orders WHERE status='PENDING'`)
}

// LowStockAlerts lists products whose system-wide quantity is at or
// below the threshold.
func (r *Repository) LowStockAlerts(ctx context.Context, threshold int) ([]Alert, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.reference, COALESCE(p.description,''),
COALESCE(SUM(s.quantity_new + s.quantity_used), 0) AS total_qty
FROM products p
LEFT JOIN stocks s ON s.product_id = p.id
GROUP BY p.id, p.reference, p.description
HAVING COALESCE(SUM(s.quantity_new + s.quantity_used), 0) <= $1
ORDER BY total_qty, p.reference`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ProductID, &a.Reference, &a.Description, &a.TotalQty); err != nil {
			return nil, err
		}
		a.Threshold = threshold
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// MovementSeries returns daily IN/OUT counts for the trailing window.
func (r *Repository) MovementSeries(ctx context.Context, since time.Time) ([]SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('day', movement_date) AS day,
COUNT(*) FILTER (WHERE type='IN') AS movements_in,
COUNT(*) FILTER (WHERE type IN ('OUT','TRANSFER')) AS movements_out
FROM stock_movements
WHERE movement_date >= $1
GROUP BY day ORDER BY day`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []SeriesPoint{}
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Day, &p.In, &p.Out); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}
