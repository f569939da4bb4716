package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/masterdata/products"
	"github.com/manoam/stocks-backend/internal/masterdata/sites"
	"github.com/manoam/stocks-backend/internal/masterdata/suppliers"
	"github.com/manoam/stocks-backend/internal/masterdata/taxonomy"
	"github.com/manoam/stocks-backend/internal/orders"
	"github.com/manoam/stocks-backend/internal/platform/db"
)

// PGStore reconciles rows against the live domain services. Natural
// keys are resolved with direct lookups; every write goes through the
// owning service so validation, invalidation and the ledger rules all
// apply to imported data exactly as they do to API writes.
type PGStore struct {
	pool      *pgxpool.Pool
	sites     *sites.Service
	suppliers *suppliers.Service
	taxonomy  *taxonomy.Service
	products  *products.Service
	inventory *inventory.Service
	orders    *orders.Service
}

// NewPGStore constructs PGStore.
func NewPGStore(
	pool *pgxpool.Pool,
	siteSvc *sites.Service,
	supplierSvc *suppliers.Service,
	taxonomySvc *taxonomy.Service,
	productSvc *products.Service,
	inventorySvc *inventory.Service,
	orderSvc *orders.Service,
) *PGStore {
	return &PGStore{
		pool:      pool,
		sites:     siteSvc,
		suppliers: supplierSvc,
		taxonomy:  taxonomySvc,
		products:  productSvc,
		inventory: inventorySvc,
		orders:    orderSvc,
	}
}

func (s *PGStore) lookupID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *PGStore) siteID(ctx context.Context, name string) (int64, bool, error) {
	return s.lookupID(ctx, `SELECT id FROM sites WHERE LOWER(name)=LOWER($1)`, name)
}

func (s *PGStore) supplierID(ctx context.Context, name string) (int64, bool, error) {
	return s.lookupID(ctx, `SELECT id FROM suppliers WHERE LOWER(name)=LOWER($1)`, name)
}

func (s *PGStore) productID(ctx context.Context, reference string) (int64, bool, error) {
	return s.lookupID(ctx, `SELECT id FROM products WHERE reference=$1`, reference)
}

func (s *PGStore) requireSite(ctx context.Context, name string) (int64, error) {
	id, found, err := s.siteID(ctx, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("unknown site %q", name)
	}
	return id, nil
}

func (s *PGStore) requireSupplier(ctx context.Context, name string) (int64, error) {
	id, found, err := s.supplierID(ctx, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("unknown supplier %q", name)
	}
	return id, nil
}

func (s *PGStore) requireProduct(ctx context.Context, reference string) (int64, error) {
	id, found, err := s.productID(ctx, reference)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("unknown product reference %q", reference)
	}
	return id, nil
}

// UpsertSite matches by name.
func (s *PGStore) UpsertSite(ctx context.Context, row SiteRow) (Outcome, error) {
	site := sites.Site{
		Name:     row.Name,
		Type:     sites.SiteType(row.Type),
		Address:  row.Address,
		IsActive: row.IsActive,
	}
	id, found, err := s.siteID(ctx, row.Name)
	if err != nil {
		return OutcomeNone, err
	}
	if found {
		if _, err := s.sites.Update(ctx, id, site); err != nil {
			return OutcomeNone, err
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.sites.Create(ctx, site); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCreated, nil
}

// UpsertSupplier matches by name.
func (s *PGStore) UpsertSupplier(ctx context.Context, row SupplierRow) (Outcome, error) {
	supplier := suppliers.Supplier{
		Name:       row.Name,
		Contact:    row.Contact,
		Email:      row.Email,
		Phone:      row.Phone,
		Website:    row.Website,
		Address:    row.Address,
		PostalCode: row.PostalCode,
		City:       row.City,
		Country:    row.Country,
		Comment:    row.Comment,
	}
	id, found, err := s.supplierID(ctx, row.Name)
	if err != nil {
		return OutcomeNone, err
	}
	if found {
		if _, err := s.suppliers.Update(ctx, id, supplier); err != nil {
			return OutcomeNone, err
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.suppliers.Create(ctx, supplier); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCreated, nil
}

// UpsertGroup matches by name.
func (s *PGStore) UpsertGroup(ctx context.Context, row TaxonomyRow) (Outcome, error) {
	group := taxonomy.ProductGroup{Name: row.Name, Description: row.Description}
	id, found, err := s.lookupID(ctx, `SELECT id FROM product_groups WHERE LOWER(name)=LOWER($1)`, row.Name)
	if err != nil {
		return OutcomeNone, err
	}
	if found {
		if err := s.taxonomy.UpdateGroup(ctx, id, group); err != nil {
			return OutcomeNone, err
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.taxonomy.CreateGroup(ctx, group); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCreated, nil
}

// UpsertAssembly matches by name, keeping the existing type links.
func (s *PGStore) UpsertAssembly(ctx context.Context, row TaxonomyRow) (Outcome, error) {
	assembly := taxonomy.Assembly{Name: row.Name, Description: row.Description}
	id, found, err := s.lookupID(ctx, `SELECT id FROM assemblies WHERE LOWER(name)=LOWER($1)`, row.Name)
	if err != nil {
		return OutcomeNone, err
	}
	if found {
		typeIDs, err := s.assemblyTypeIDs(ctx, id)
		if err != nil {
			return OutcomeNone, err
		}
		if err := s.taxonomy.UpdateAssembly(ctx, id, assembly, typeIDs); err != nil {
			return OutcomeNone, err
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.taxonomy.CreateAssembly(ctx, assembly, nil); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCreated, nil
}

func (s *PGStore) assemblyTypeIDs(ctx context.Context, assemblyID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT type_id FROM assembly_type_links WHERE assembly_id=$1`, assemblyID)
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
	return ids, rows.Err()
}

// UpsertProduct matches by reference. Group and assembly names must
// already exist, either in the database or earlier in the same file.
func (s *PGStore) UpsertProduct(ctx context.Context, row ProductRow) (Outcome, error) {
	product := products.Product{
		Reference:   row.Reference,
		Description: row.Description,
		QtyPerUnit:  row.QtyPerUnit,
		SupplyRisk:  products.SupplyRisk(row.SupplyRisk),
		Location:    row.Location,
		Comment:     row.Comment,
		ImageURL:    row.ImageURL,
	}
	if row.Group != "" {
		id, found, err := s.lookupID(ctx, `SELECT id FROM product_groups WHERE LOWER(name)=LOWER($1)`, row.Group)
		if err != nil {
			return OutcomeNone, err
		}
		if !found {
			return OutcomeNone, fmt.Errorf("unknown product group %q", row.Group)
		}
		product.GroupID = &id
	}
	if row.Assembly != "" {
		id, found, err := s.lookupID(ctx, `SELECT id FROM assemblies WHERE LOWER(name)=LOWER($1)`, row.Assembly)
		if err != nil {
			return OutcomeNone, err
		}
		if !found {
			return OutcomeNone, fmt.Errorf("unknown assembly %q", row.Assembly)
		}
		product.AssemblyID = &id
	}

	id, found, err := s.productID(ctx, row.Reference)
	if err != nil {
		return OutcomeNone, err
	}
	if found {
		if _, err := s.products.Update(ctx, id, product); err != nil {
			return OutcomeNone, err
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.products.Create(ctx, product); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCreated, nil
}

// UpsertProductSupplier matches by (product reference, supplier name).
func (s *PGStore) UpsertProductSupplier(ctx context.Context, row ProductSupplierRow) (Outcome, error) {
	productID, err := s.requireProduct(ctx, row.ProductReference)
	if err != nil {
		return OutcomeNone, err
	}
	supplierID, err := s.requireSupplier(ctx, row.SupplierName)
	if err != nil {
		return OutcomeNone, err
	}

	input := products.LinkInput{
		SupplierRef:  row.SupplierRef,
		UnitPrice:    row.UnitPrice,
		LeadTime:     row.LeadTime,
		ProductURL:   row.ProductURL,
		ShippingCost: row.ShippingCost,
		IsPrimary:    row.IsPrimary,
	}

	_, found, err := s.lookupID(ctx,
		`SELECT id FROM product_suppliers WHERE product_id=$1 AND supplier_id=$2`, productID, supplierID)
	if err != nil {
		return OutcomeNone, err
	}
	if found {
		if _, err := s.products.UpdateLink(ctx, productID, supplierID, input); err != nil {
			return OutcomeNone, err
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.products.LinkSupplier(ctx, productID, supplierID, input); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCreated, nil
}

// AdjustStock brings a stock row to the imported quantities by posting
// adjustment movements through the engine, which stays the ledger's
// only writer. A row already at the target quantities is a no-op.
func (s *PGStore) AdjustStock(ctx context.Context, row StockRow) (Outcome, error) {
	productID, err := s.requireProduct(ctx, row.ProductReference)
	if err != nil {
		return OutcomeNone, err
	}
	siteID, err := s.requireSite(ctx, row.SiteName)
	if err != nil {
		return OutcomeNone, err
	}

	// Both legs share one transaction over a locked stock row, so a
	// failing leg never leaves the row half-adjusted.
	outcome := OutcomeNone
	err = db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		o, err := reconcileStock(ctx, inventory.NewTxRepository(tx), s.inventory, productID, siteID, row)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		return OutcomeNone, err
	}
	return outcome, nil
}

// reconcileStock posts the adjustment movements that bring the locked
// stock row to the imported quantities. Both condition legs go through
// the same ledger so the caller's transaction commits them together.
func reconcileStock(ctx context.Context, ledger inventory.TxRepository, engine *inventory.Service, productID, siteID int64, row StockRow) (Outcome, error) {
	existed := true
	stock, err := ledger.GetStockForUpdate(ctx, productID, siteID)
	if errors.Is(err, inventory.ErrStockNotFound) {
		existed = false
	} else if err != nil {
		return OutcomeNone, err
	}

	adjusted := false
	for _, leg := range []struct {
		condition inventory.Condition
		delta     int64
	}{
		{inventory.ConditionNew, row.QuantityNew - int64(stock.QuantityNew)},
		{inventory.ConditionUsed, row.QuantityUsed - int64(stock.QuantityUsed)},
	} {
		if leg.delta == 0 {
			continue
		}
		input := inventory.MovementInput{
			ProductID: productID,
			Condition: leg.condition,
			Comment:   "stock import adjustment",
		}
		if leg.delta > 0 {
			input.Type = inventory.MovementIn
			input.TargetSiteID = &siteID
			input.Quantity = int(leg.delta)
		} else {
			input.Type = inventory.MovementOut
			input.SourceSiteID = &siteID
			input.Quantity = int(-leg.delta)
		}
		if _, err := engine.PostMovementTx(ctx, ledger, input); err != nil {
			return OutcomeNone, err
		}
		adjusted = true
	}

	switch {
	case !adjusted:
		return OutcomeNone, nil
	case existed:
		return OutcomeUpdated, nil
	default:
		return OutcomeCreated, nil
	}
}

// RecordMovement posts an imported movement through the engine.
func (s *PGStore) RecordMovement(ctx context.Context, row MovementRow) error {
	productID, err := s.requireProduct(ctx, row.ProductReference)
	if err != nil {
		return err
	}

	input := inventory.MovementInput{
		ProductID:    productID,
		Type:         inventory.MovementType(row.Type),
		Quantity:     int(row.Quantity),
		Condition:    inventory.Condition(row.Condition),
		MovementDate: row.MovementDate,
		Operator:     row.Operator,
		Comment:      row.Comment,
	}
	if row.SourceSite != "" {
		id, err := s.requireSite(ctx, row.SourceSite)
		if err != nil {
			return err
		}
		input.SourceSiteID = &id
	}
	if row.TargetSite != "" {
		id, err := s.requireSite(ctx, row.TargetSite)
		if err != nil {
			return err
		}
		input.TargetSiteID = &id
	}

	_, err = s.inventory.CreateMovement(ctx, input)
	return err
}

// CreateOrder registers an imported purchase order as PENDING.
func (s *PGStore) CreateOrder(ctx context.Context, row OrderRow) error {
	productID, err := s.requireProduct(ctx, row.ProductReference)
	if err != nil {
		return err
	}
	supplierID, err := s.requireSupplier(ctx, row.SupplierName)
	if err != nil {
		return err
	}

	input := orders.CreateInput{
		ProductID:    productID,
		SupplierID:   supplierID,
		Quantity:     row.Quantity,
		OrderDate:    row.OrderDate,
		ExpectedDate: row.ExpectedDate,
		Responsible:  row.Responsible,
		SupplierRef:  row.SupplierRef,
		Comment:      row.Comment,
	}
	if row.DestinationSite != "" {
		id, err := s.requireSite(ctx, row.DestinationSite)
		if err != nil {
			return err
		}
		input.DestinationSiteID = &id
	}

	_, err = s.orders.Create(ctx, input)
	return err
}
