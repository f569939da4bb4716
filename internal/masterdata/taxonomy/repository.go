package taxonomy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	ListGroups(ctx context.Context) ([]ProductGroup, error)
	CreateGroup(ctx context.Context, group ProductGroup) (ProductGroup, error)
	UpdateGroup(ctx context.Context, id int64, group ProductGroup) error
	DeleteGroup(ctx context.Context, id int64) error

	ListAssemblies(ctx context.Context) ([]Assembly, error)
	CreateAssembly(ctx context.Context, assembly Assembly, typeIDs []int64) (Assembly, error)
	UpdateAssembly(ctx context.Context, id int64, assembly Assembly, typeIDs []int64) error
	DeleteAssembly(ctx context.Context, id int64) error

	ListAssemblyTypes(ctx context.Context) ([]AssemblyType, error)
	CreateAssemblyType(ctx context.Context, t AssemblyType) (AssemblyType, error)
	DeleteAssemblyType(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var (
	// ErrNotFound indicates a missing taxonomy node.
	ErrNotFound = errors.New("taxonomy node not found")
	// ErrDuplicateName indicates a name collision within a node kind.
	ErrDuplicateName = errors.New("a node with this name already exists")
)

func (r *repository) ListGroups(ctx context.Context) ([]ProductGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description,''), created_at FROM product_groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []ProductGroup{}
	for rows.Next() {
		var g ProductGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *repository) CreateGroup(ctx context.Context, g ProductGroup) (ProductGroup, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO product_groups (name, description, created_at)
VALUES ($1,NULLIF($2,''),NOW()) RETURNING id, created_at`, g.Name, g.Description).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return ProductGroup{}, mapUniqueViolation(err)
	}
	return g, nil
}

func (r *repository) UpdateGroup(ctx context.Context, id int64, g ProductGroup) error {
	tag, err := r.pool.Exec(ctx, `UPDATE product_groups SET name=$1, description=NULLIF($2,'') WHERE id=$3`,
		g.Name, g.Description, id)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup detaches products from the group, never cascades.
func (r *repository) DeleteGroup(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE products SET group_id=NULL WHERE group_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM product_groups WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *repository) ListAssemblies(ctx context.Context) ([]Assembly, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description,''), created_at FROM assemblies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assemblies := []Assembly{}
	for rows.Next() {
		var a Assembly
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.CreatedAt); err != nil {
			return nil, err
		}
		assemblies = append(assemblies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range assemblies {
		types, err := r.assemblyTypes(ctx, assemblies[i].ID)
		if err != nil {
			return nil, err
		}
		assemblies[i].Types = types
	}
	return assemblies, nil
}

func (r *repository) assemblyTypes(ctx context.Context, assemblyID int64) ([]AssemblyType, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.name FROM assembly_types t
JOIN assembly_type_links l ON l.type_id = t.id
WHERE l.assembly_id = $1 ORDER BY t.name`, assemblyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []AssemblyType{}
	for rows.Next() {
		var t AssemblyType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *repository) CreateAssembly(ctx context.Context, a Assembly, typeIDs []int64) (Assembly, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Assembly{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `INSERT INTO assemblies (name, description, created_at)
VALUES ($1,NULLIF($2,''),NOW()) RETURNING id, created_at`, a.Name, a.Description).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Assembly{}, mapUniqueViolation(err)
	}
	if err := insertTypeLinks(ctx, tx, a.ID, typeIDs); err != nil {
		return Assembly{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Assembly{}, err
	}
	a.Types, err = r.assemblyTypes(ctx, a.ID)
	return a, err
}

func (r *repository) UpdateAssembly(ctx context.Context, id int64, a Assembly, typeIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE assemblies SET name=$1, description=NULLIF($2,'') WHERE id=$3`,
		a.Name, a.Description, id)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM assembly_type_links WHERE assembly_id=$1`, id); err != nil {
		return err
	}
	if err := insertTypeLinks(ctx, tx, id, typeIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertTypeLinks(ctx context.Context, tx pgx.Tx, assemblyID int64, typeIDs []int64) error {
	for _, typeID := range typeIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO assembly_type_links (assembly_id, type_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, assemblyID, typeID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAssembly detaches products and type links, never cascades.
func (r *repository) DeleteAssembly(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE products SET assembly_id=NULL WHERE assembly_id=$1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM assembly_type_links WHERE assembly_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM assemblies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *repository) ListAssemblyTypes(ctx context.Context) ([]AssemblyType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM assembly_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []AssemblyType{}
	for rows.Next() {
		var t AssemblyType
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *repository) CreateAssemblyType(ctx context.Context, t AssemblyType) (AssemblyType, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO assembly_types (name) VALUES ($1) RETURNING id`, t.Name).Scan(&t.ID)
	if err != nil {
		return AssemblyType{}, mapUniqueViolation(err)
	}
	return t, nil
}

func (r *repository) DeleteAssemblyType(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM assembly_type_links WHERE type_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM assembly_types WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return err
}
