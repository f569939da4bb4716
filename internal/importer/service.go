package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/manoam/stocks-backend/internal/shared"
)

// Outcome reports what a reconciliation write did.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCreated
	OutcomeUpdated
)

// Row payloads handed to the store, already parsed and trimmed. Sites,
// suppliers and products are matched by natural key (name, reference)
// so a re-imported file updates rather than duplicates.
type (
	SiteRow struct {
		Name     string
		Type     string
		Address  string
		IsActive bool
	}

	SupplierRow struct {
		Name       string
		Contact    string
		Email      string
		Phone      string
		Website    string
		Address    string
		PostalCode string
		City       string
		Country    string
		Comment    string
	}

	TaxonomyRow struct {
		Name        string
		Description string
	}

	ProductRow struct {
		Reference   string
		Description string
		QtyPerUnit  int
		SupplyRisk  string
		Location    string
		Group       string
		Assembly    string
		Comment     string
		ImageURL    string
	}

	ProductSupplierRow struct {
		ProductReference string
		SupplierName     string
		SupplierRef      string
		UnitPrice        *float64
		LeadTime         *int
		ProductURL       string
		ShippingCost     *float64
		IsPrimary        bool
	}

	StockRow struct {
		ProductReference string
		SiteName         string
		QuantityNew      int64
		QuantityUsed     int64
	}

	MovementRow struct {
		ProductReference string
		Type             string
		SourceSite       string
		TargetSite       string
		Quantity         int64
		Condition        string
		MovementDate     time.Time
		Operator         string
		Comment          string
	}

	OrderRow struct {
		ProductReference string
		SupplierName     string
		Quantity         int
		OrderDate        time.Time
		ExpectedDate     *time.Time
		DestinationSite  string
		Responsible      string
		SupplierRef      string
		Comment          string
	}
)

// Store applies reconciled rows against the backing domain services.
// Movements and orders are append-only so they only report creation.
type Store interface {
	UpsertSite(ctx context.Context, row SiteRow) (Outcome, error)
	UpsertSupplier(ctx context.Context, row SupplierRow) (Outcome, error)
	UpsertGroup(ctx context.Context, row TaxonomyRow) (Outcome, error)
	UpsertAssembly(ctx context.Context, row TaxonomyRow) (Outcome, error)
	UpsertProduct(ctx context.Context, row ProductRow) (Outcome, error)
	UpsertProductSupplier(ctx context.Context, row ProductSupplierRow) (Outcome, error)
	AdjustStock(ctx context.Context, row StockRow) (Outcome, error)
	RecordMovement(ctx context.Context, row MovementRow) error
	CreateOrder(ctx context.Context, row OrderRow) error
}

// EntityResult counts what happened to one entity during a run.
type EntityResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// Result is the outcome of a full import run.
type Result struct {
	BatchID  string                   `json:"batchId"`
	Entities map[string]*EntityResult `json:"entities"`
	Skipped  []string                 `json:"skippedSheets,omitempty"`
}

// SheetPreview describes one sheet without persisting anything.
type SheetPreview struct {
	Name       string     `json:"name"`
	Entity     string     `json:"entity,omitempty"`
	Headers    []string   `json:"headers"`
	RowCount   int        `json:"rowCount"`
	SampleRows [][]string `json:"sampleRows"`
}

// Preview is the read-only inspection of an uploaded workbook.
type Preview struct {
	Sheets []SheetPreview `json:"sheets"`
}

const previewSampleRows = 5

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidatorPort bumps read-model versions after a run.
type InvalidatorPort interface {
	Bump(ctx context.Context, views ...string)
}

// Service drives spreadsheet import and reconciliation.
type Service struct {
	store       Store
	audit       AuditPort
	invalidator InvalidatorPort
	logger      *slog.Logger
}

// NewService builds Service. Audit, invalidator and logger may be nil.
func NewService(store Store, audit AuditPort, invalidator InvalidatorPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, invalidator: invalidator, logger: logger}
}

// entity identifiers used as result keys and sheet classifications.
const (
	entitySites            = "sites"
	entitySuppliers        = "suppliers"
	entityGroups           = "productGroups"
	entityAssemblies       = "assemblies"
	entityProducts         = "products"
	entityProductSuppliers = "productSuppliers"
	entityStocks           = "stocks"
	entityMovements        = "movements"
	entityOrders           = "orders"
)

// importOrder is the dependency order: referenced entities first, so a
// single file can introduce a site and move stock into it.
var importOrder = []string{
	entitySites,
	entitySuppliers,
	entityGroups,
	entityAssemblies,
	entityProducts,
	entityProductSuppliers,
	entityStocks,
	entityMovements,
	entityOrders,
}

var sheetAliases = map[string]string{
	"sites":             entitySites,
	"site":              entitySites,
	"suppliers":         entitySuppliers,
	"supplier":          entitySuppliers,
	"fournisseurs":      entitySuppliers,
	"groups":            entityGroups,
	"product_groups":    entityGroups,
	"groupes":           entityGroups,
	"assemblies":        entityAssemblies,
	"assembly":          entityAssemblies,
	"ensembles":         entityAssemblies,
	"products":          entityProducts,
	"product":           entityProducts,
	"produits":          entityProducts,
	"product_suppliers": entityProductSuppliers,
	"productsuppliers":  entityProductSuppliers,
	"prix_fournisseurs": entityProductSuppliers,
	"stocks":            entityStocks,
	"stock":             entityStocks,
	"movements":         entityMovements,
	"stock_movements":   entityMovements,
	"mouvements":        entityMovements,
	"orders":            entityOrders,
	"commandes":         entityOrders,
}

func classifySheet(name string) string {
	return sheetAliases[NormalizeKey(name)]
}

// Preview parses the upload and describes every sheet. Never writes.
func (s *Service) Preview(reader io.Reader, filename string) (Preview, error) {
	sheets, err := ParseWorkbook(reader, filename)
	if err != nil {
		return Preview{}, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}

	preview := Preview{Sheets: make([]SheetPreview, 0, len(sheets))}
	for _, sheet := range sheets {
		sp := SheetPreview{
			Name:       sheet.Name,
			Entity:     classifySheet(sheet.Name),
			Headers:    sheet.Headers,
			RowCount:   len(sheet.Rows),
			SampleRows: [][]string{},
		}
		for _, row := range sheet.Rows {
			if len(sp.SampleRows) == previewSampleRows {
				break
			}
			sample := make([]string, len(sheet.Headers))
			for i, header := range sheet.Headers {
				sample[i] = row.Get(NormalizeKey(header))
			}
			sp.SampleRows = append(sp.SampleRows, sample)
		}
		preview.Sheets = append(preview.Sheets, sp)
	}
	return preview, nil
}

// Run parses the upload and reconciles it sheet by sheet in dependency
// order. Row failures are collected per entity and never abort the
// batch.
func (s *Service) Run(ctx context.Context, reader io.Reader, filename, actor string) (Result, error) {
	sheets, err := ParseWorkbook(reader, filename)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}

	result := Result{
		BatchID:  uuid.NewString(),
		Entities: map[string]*EntityResult{},
	}

	grouped := map[string][]Sheet{}
	for _, sheet := range sheets {
		entity := classifySheet(sheet.Name)
		if entity == "" {
			result.Skipped = append(result.Skipped, sheet.Name)
			continue
		}
		grouped[entity] = append(grouped[entity], sheet)
	}

	for _, entity := range importOrder {
		for _, sheet := range grouped[entity] {
			res := result.Entities[entity]
			if res == nil {
				res = &EntityResult{Errors: []string{}}
				result.Entities[entity] = res
			}
			s.runSheet(ctx, entity, sheet, res)
		}
	}

	total := 0
	for _, res := range result.Entities {
		total += res.Created + res.Updated
	}
	s.logger.Info("import finished",
		slog.String("batch_id", result.BatchID),
		slog.String("file", filename),
		slog.Int("applied", total))

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "import:run",
			Entity:   "import_batch",
			EntityID: result.BatchID,
			Meta: map[string]any{
				"file":    filename,
				"applied": total,
			},
		})
	}
	if s.invalidator != nil && total > 0 {
		s.invalidator.Bump(ctx,
			shared.ViewSites, shared.ViewSuppliers, shared.ViewProducts,
			shared.ViewStocks, shared.ViewMovements, shared.ViewOrders,
			shared.ViewDashboard)
	}
	return result, nil
}

func (s *Service) runSheet(ctx context.Context, entity string, sheet Sheet, res *EntityResult) {
	for _, row := range sheet.Rows {
		outcome, err := s.applyRow(ctx, entity, row)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s row %d: %s", sheet.Name, row.Number, reason(err)))
			continue
		}
		switch outcome {
		case OutcomeCreated:
			res.Created++
		case OutcomeUpdated:
			res.Updated++
		}
	}
}

func (s *Service) applyRow(ctx context.Context, entity string, row Row) (Outcome, error) {
	switch entity {
	case entitySites:
		parsed, err := parseSiteRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.UpsertSite(ctx, parsed)
	case entitySuppliers:
		parsed, err := parseSupplierRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.UpsertSupplier(ctx, parsed)
	case entityGroups:
		parsed, err := parseTaxonomyRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.UpsertGroup(ctx, parsed)
	case entityAssemblies:
		parsed, err := parseTaxonomyRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.UpsertAssembly(ctx, parsed)
	case entityProducts:
		parsed, err := parseProductRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.UpsertProduct(ctx, parsed)
	case entityProductSuppliers:
		parsed, err := parseProductSupplierRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.UpsertProductSupplier(ctx, parsed)
	case entityStocks:
		parsed, err := parseStockRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		return s.store.AdjustStock(ctx, parsed)
	case entityMovements:
		parsed, err := parseMovementRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		if err := s.store.RecordMovement(ctx, parsed); err != nil {
			return OutcomeNone, err
		}
		return OutcomeCreated, nil
	case entityOrders:
		parsed, err := parseOrderRow(row)
		if err != nil {
			return OutcomeNone, err
		}
		if err := s.store.CreateOrder(ctx, parsed); err != nil {
			return OutcomeNone, err
		}
		return OutcomeCreated, nil
	}
	return OutcomeNone, fmt.Errorf("unknown entity %q", entity)
}

// reason strips the shared validation sentinel prefix so row errors
// read as plain messages.
func reason(err error) string {
	msg := err.Error()
	prefix := shared.ErrValidation.Error() + ": "
	return strings.TrimPrefix(msg, prefix)
}

// --- row parsing ---

func requireField(row Row, key string) (string, error) {
	value := row.Get(key)
	if value == "" {
		return "", fmt.Errorf("missing required field %q", key)
	}
	return value, nil
}

func intField(row Row, key string, def int) (int, error) {
	raw := row.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("field %q: %q is not an integer", key, raw)
	}
	return n, nil
}

func int64Field(row Row, key string, def int64) (int64, error) {
	raw := row.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %q is not an integer", key, raw)
	}
	return n, nil
}

func floatPtrField(row Row, key string) (*float64, error) {
	raw := row.Get(key)
	if raw == "" {
		return nil, nil
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("field %q: %q is not a number", key, raw)
	}
	return &f, nil
}

func boolField(row Row, key string, def bool) (bool, error) {
	raw := strings.ToLower(row.Get(key))
	switch raw {
	case "":
		return def, nil
	case "true", "1", "yes", "oui", "x":
		return true, nil
	case "false", "0", "no", "non":
		return false, nil
	}
	return false, fmt.Errorf("field %q: %q is not a boolean", key, raw)
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "02/01/2006"}

func dateField(row Row, key string, def time.Time) (time.Time, error) {
	raw := row.Get(key)
	if raw == "" {
		return def, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("field %q: %q is not a date", key, raw)
}

func parseSiteRow(row Row) (SiteRow, error) {
	name, err := requireField(row, "name")
	if err != nil {
		return SiteRow{}, err
	}
	siteType := strings.ToUpper(row.Get("type"))
	if siteType == "" {
		siteType = "STORAGE"
	}
	if siteType != "STORAGE" && siteType != "EXIT" {
		return SiteRow{}, fmt.Errorf("field \"type\": %q is not STORAGE or EXIT", row.Get("type"))
	}
	active, err := boolField(row, "is_active", true)
	if err != nil {
		return SiteRow{}, err
	}
	return SiteRow{Name: name, Type: siteType, Address: row.Get("address"), IsActive: active}, nil
}

func parseSupplierRow(row Row) (SupplierRow, error) {
	name, err := requireField(row, "name")
	if err != nil {
		return SupplierRow{}, err
	}
	return SupplierRow{
		Name:       name,
		Contact:    row.Get("contact"),
		Email:      row.Get("email"),
		Phone:      row.Get("phone"),
		Website:    row.Get("website"),
		Address:    row.Get("address"),
		PostalCode: row.Get("postal_code"),
		City:       row.Get("city"),
		Country:    row.Get("country"),
		Comment:    row.Get("comment"),
	}, nil
}

func parseTaxonomyRow(row Row) (TaxonomyRow, error) {
	name, err := requireField(row, "name")
	if err != nil {
		return TaxonomyRow{}, err
	}
	return TaxonomyRow{Name: name, Description: row.Get("description")}, nil
}

func parseProductRow(row Row) (ProductRow, error) {
	reference, err := requireField(row, "reference")
	if err != nil {
		return ProductRow{}, err
	}
	qty, err := intField(row, "qty_per_unit", 1)
	if err != nil {
		return ProductRow{}, err
	}
	if qty < 1 {
		return ProductRow{}, fmt.Errorf("field \"qty_per_unit\": must be at least 1")
	}
	risk := strings.ToUpper(row.Get("supply_risk"))
	switch risk {
	case "", "LOW", "MEDIUM", "HIGH":
	default:
		return ProductRow{}, fmt.Errorf("field \"supply_risk\": %q is not LOW, MEDIUM or HIGH", row.Get("supply_risk"))
	}
	return ProductRow{
		Reference:   reference,
		Description: row.Get("description"),
		QtyPerUnit:  qty,
		SupplyRisk:  risk,
		Location:    row.Get("location"),
		Group:       row.Get("group"),
		Assembly:    row.Get("assembly"),
		Comment:     row.Get("comment"),
		ImageURL:    row.Get("image_url"),
	}, nil
}

func parseProductSupplierRow(row Row) (ProductSupplierRow, error) {
	reference, err := requireField(row, "product_reference")
	if err != nil {
		return ProductSupplierRow{}, err
	}
	supplier, err := requireField(row, "supplier_name")
	if err != nil {
		return ProductSupplierRow{}, err
	}
	unitPrice, err := floatPtrField(row, "unit_price")
	if err != nil {
		return ProductSupplierRow{}, err
	}
	shipping, err := floatPtrField(row, "shipping_cost")
	if err != nil {
		return ProductSupplierRow{}, err
	}
	var leadTime *int
	if lt, err := intField(row, "lead_time", -1); err != nil {
		return ProductSupplierRow{}, err
	} else if lt >= 0 {
		leadTime = &lt
	}
	primary, err := boolField(row, "is_primary", false)
	if err != nil {
		return ProductSupplierRow{}, err
	}
	return ProductSupplierRow{
		ProductReference: reference,
		SupplierName:     supplier,
		SupplierRef:      row.Get("supplier_ref"),
		UnitPrice:        unitPrice,
		LeadTime:         leadTime,
		ProductURL:       row.Get("product_url"),
		ShippingCost:     shipping,
		IsPrimary:        primary,
	}, nil
}

func parseStockRow(row Row) (StockRow, error) {
	reference, err := requireField(row, "product_reference")
	if err != nil {
		return StockRow{}, err
	}
	site, err := requireField(row, "site_name")
	if err != nil {
		return StockRow{}, err
	}
	qtyNew, err := int64Field(row, "quantity_new", 0)
	if err != nil {
		return StockRow{}, err
	}
	qtyUsed, err := int64Field(row, "quantity_used", 0)
	if err != nil {
		return StockRow{}, err
	}
	if qtyNew < 0 || qtyUsed < 0 {
		return StockRow{}, fmt.Errorf("quantities must not be negative")
	}
	return StockRow{ProductReference: reference, SiteName: site, QuantityNew: qtyNew, QuantityUsed: qtyUsed}, nil
}

func parseMovementRow(row Row) (MovementRow, error) {
	reference, err := requireField(row, "product_reference")
	if err != nil {
		return MovementRow{}, err
	}
	movementType := strings.ToUpper(row.Get("type"))
	switch movementType {
	case "IN", "OUT", "TRANSFER":
	default:
		return MovementRow{}, fmt.Errorf("field \"type\": %q is not IN, OUT or TRANSFER", row.Get("type"))
	}
	quantity, err := int64Field(row, "quantity", 0)
	if err != nil {
		return MovementRow{}, err
	}
	if quantity <= 0 {
		return MovementRow{}, fmt.Errorf("field \"quantity\": must be positive")
	}
	condition := strings.ToUpper(row.Get("condition"))
	if condition == "" {
		condition = "NEW"
	}
	if condition != "NEW" && condition != "USED" {
		return MovementRow{}, fmt.Errorf("field \"condition\": %q is not NEW or USED", row.Get("condition"))
	}
	date, err := dateField(row, "movement_date", time.Now().UTC())
	if err != nil {
		return MovementRow{}, err
	}
	return MovementRow{
		ProductReference: reference,
		Type:             movementType,
		SourceSite:       row.Get("source_site"),
		TargetSite:       row.Get("target_site"),
		Quantity:         quantity,
		Condition:        condition,
		MovementDate:     date,
		Operator:         row.Get("operator"),
		Comment:          row.Get("comment"),
	}, nil
}

func parseOrderRow(row Row) (OrderRow, error) {
	reference, err := requireField(row, "product_reference")
	if err != nil {
		return OrderRow{}, err
	}
	supplier, err := requireField(row, "supplier_name")
	if err != nil {
		return OrderRow{}, err
	}
	quantity, err := intField(row, "quantity", 0)
	if err != nil {
		return OrderRow{}, err
	}
	if quantity <= 0 {
		return OrderRow{}, fmt.Errorf("field \"quantity\": must be positive")
	}
	orderDate, err := dateField(row, "order_date", time.Now().UTC())
	if err != nil {
		return OrderRow{}, err
	}
	var expected *time.Time
	if raw := row.Get("expected_date"); raw != "" {
		t, err := dateField(row, "expected_date", time.Time{})
		if err != nil {
			return OrderRow{}, err
		}
		expected = &t
	}
	return OrderRow{
		ProductReference: reference,
		SupplierName:     supplier,
		Quantity:         quantity,
		OrderDate:        orderDate,
		ExpectedDate:     expected,
		DestinationSite:  row.Get("destination_site"),
		Responsible:      row.Get("responsible"),
		SupplierRef:      row.Get("supplier_ref"),
		Comment:          row.Get("comment"),
	}, nil
}
