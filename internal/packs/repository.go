package packs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/platform/db"
)

// TxStore exposes the ledger of an open transaction for pack execution.
type TxStore interface {
	GetPack(ctx context.Context, id int64) (Pack, error)
	Ledger() inventory.TxRepository
}

// Repository persists packs in PostgreSQL.
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

func (s *txStore) GetPack(ctx context.Context, id int64) (Pack, error) {
	return loadPack(ctx, s.tx, id)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadPack(ctx context.Context, q queryer, id int64) (Pack, error) {
	var p Pack
	err := q.QueryRow(ctx, `SELECT id, name, type, COALESCE(description,''), created_at, updated_at FROM packs WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Type, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pack{}, ErrNotFound
		}
		return Pack{}, err
	}

	rows, err := q.Query(ctx, `SELECT i.id, i.product_id, i.quantity, pr.reference
FROM pack_items i JOIN products pr ON pr.id = i.product_id
WHERE i.pack_id=$1 ORDER BY i.id`, id)
	if err != nil {
		return Pack{}, err
	}
	defer rows.Close()

	p.Items = []PackItem{}
	for rows.Next() {
		var item PackItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Quantity, &item.Reference); err != nil {
			return Pack{}, err
		}
		p.Items = append(p.Items, item)
	}
	return p, rows.Err()
}

// Get loads one pack with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Pack, error) {
	return loadPack(ctx, r.pool, id)
}

// List returns every pack with items. Pack counts stay small enough
// that the listing is not paginated.
func (r *Repository) List(ctx context.Context) ([]Pack, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM packs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	packs := []Pack{}
	for _, id := range ids {
		p, err := loadPack(ctx, r.pool, id)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// Create inserts a pack and its items in one transaction.
func (r *Repository) Create(ctx context.Context, p Pack) (Pack, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO packs (name, type, description, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),NOW(),NOW()) RETURNING id, created_at, updated_at`,
			p.Name, string(p.Type), p.Description).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
		return insertItems(ctx, tx, p.ID, p.Items)
	})
	if err != nil {
		return Pack{}, err
	}
	return r.Get(ctx, p.ID)
}

// Update replaces the pack header and its item list.
func (r *Repository) Update(ctx context.Context, id int64, p Pack) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE packs SET name=$1, type=$2, description=NULLIF($3,''), updated_at=NOW() WHERE id=$4`,
			p.Name, string(p.Type), p.Description, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pack_items WHERE pack_id=$1`, id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, p.Items)
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, packID int64, items []PackItem) error {
	for _, item := range items {
		if _, err := tx.Exec(ctx, `INSERT INTO pack_items (pack_id, product_id, quantity) VALUES ($1,$2,$3)`,
			packID, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a pack and its items.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM pack_items WHERE pack_id=$1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM packs WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
