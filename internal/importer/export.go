package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xuri/excelize/v2"
)

// FormatCSV and FormatXLSX are the supported export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	exportFlushEvery = 200
	exportBufferSize = 32 * 1024
)

// ErrUnknownEntity rejects export requests for entities we don't serve.
var ErrUnknownEntity = fmt.Errorf("unknown export entity")

// ErrUnknownFormat rejects formats other than csv and xlsx.
var ErrUnknownFormat = fmt.Errorf("format must be csv or xlsx")

type dataset struct {
	sheet   string
	headers []string
	rows    [][]string
}

// Exporter streams entity snapshots as csv or xlsx files. Column order
// matches the import sheets so an exported file can be re-imported.
type Exporter struct {
	pool *pgxpool.Pool
}

// NewExporter constructs Exporter.
func NewExporter(pool *pgxpool.Pool) *Exporter {
	return &Exporter{pool: pool}
}

// Export writes the requested entity to w and returns the suggested
// file name.
func (e *Exporter) Export(ctx context.Context, entity, format string, w io.Writer) (string, error) {
	if format != FormatCSV && format != FormatXLSX {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	ds, err := e.load(ctx, entity)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s.%s", entity, time.Now().UTC().Format("2006-01-02"), format)
	if format == FormatXLSX {
		return name, writeXLSX(w, ds)
	}
	return name, writeCSV(w, ds)
}

func (e *Exporter) load(ctx context.Context, entity string) (dataset, error) {
	switch entity {
	case entitySites:
		return e.query(ctx, "sites",
			[]string{"name", "type", "address", "is_active"},
			`SELECT name, type, COALESCE(address,''), is_active::text
FROM sites ORDER BY name`)
	case entitySuppliers:
		return e.query(ctx, "suppliers",
			[]string{"name", "contact", "email", "phone", "website", "address", "postal_code", "city", "country", "comment"},
			`SELECT name, COALESCE(contact,''), COALESCE(email,''), COALESCE(phone,''), COALESCE(website,''),
COALESCE(address,''), COALESCE(postal_code,''), COALESCE(city,''), COALESCE(country,''), COALESCE(comment,'')
FROM suppliers ORDER BY name`)
	case entityProducts:
		return e.query(ctx, "products",
			[]string{"reference", "description", "qty_per_unit", "supply_risk", "location", "group", "assembly", "comment", "image_url"},
			`SELECT p.reference, COALESCE(p.description,''), p.qty_per_unit::text, COALESCE(p.supply_risk,''),
COALESCE(p.location,''), COALESCE(g.name,''), COALESCE(a.name,''), COALESCE(p.comment,''), COALESCE(p.image_url,'')
FROM products p
LEFT JOIN product_groups g ON g.id = p.group_id
LEFT JOIN assemblies a ON a.id = p.assembly_id
ORDER BY p.reference`)
	case entityProductSuppliers:
		return e.query(ctx, "product_suppliers",
			[]string{"product_reference", "supplier_name", "supplier_ref", "unit_price", "lead_time", "product_url", "shipping_cost", "is_primary"},
			`SELECT p.reference, s.name, COALESCE(ps.supplier_ref,''), COALESCE(ps.unit_price::text,''),
COALESCE(ps.lead_time::text,''), COALESCE(ps.product_url,''), COALESCE(ps.shipping_cost::text,''), ps.is_primary::text
FROM product_suppliers ps
JOIN products p ON p.id = ps.product_id
JOIN suppliers s ON s.id = ps.supplier_id
ORDER BY p.reference, s.name`)
	case entityStocks:
		return e.query(ctx, "stocks",
			[]string{"product_reference", "site_name", "quantity_new", "quantity_used"},
			`SELECT p.reference, si.name, st.quantity_new::text, st.quantity_used::text
FROM stocks st
JOIN products p ON p.id = st.product_id
JOIN sites si ON si.id = st.site_id
WHERE st.quantity_new > 0 OR st.quantity_used > 0
ORDER BY p.reference, si.name`)
	case entityMovements:
		return e.query(ctx, "movements",
			[]string{"product_reference", "type", "source_site", "target_site", "quantity", "condition", "movement_date", "operator", "comment"},
			`SELECT p.reference, m.type, COALESCE(src.name,''), COALESCE(dst.name,''), m.quantity::text,
m.condition, to_char(m.movement_date, 'YYYY-MM-DD'), COALESCE(m.operator,''), COALESCE(m.comment,'')
FROM stock_movements m
JOIN products p ON p.id = m.product_id
LEFT JOIN sites src ON src.id = m.source_site_id
LEFT JOIN sites dst ON dst.id = m.target_site_id
ORDER BY m.movement_date DESC, m.id DESC`)
	case entityOrders:
		return e.query(ctx, "orders",
			[]string{"product_reference", "supplier_name", "quantity", "status", "order_date", "expected_date", "destination_site", "responsible", "supplier_ref", "comment"},
			`SELECT p.reference, s.name, o.quantity::text, o.status,
to_char(o.order_date, 'YYYY-MM-DD'), COALESCE(to_char(o.expected_date, 'YYYY-MM-DD'),''),
COALESCE(d.name,''), COALESCE(o.responsible,''), COALESCE(o.supplier_ref,''), COALESCE(o.comment,'')
FROM orders o
JOIN products p ON p.id = o.product_id
JOIN suppliers s ON s.id = o.supplier_id
LEFT JOIN sites d ON d.id = o.destination_site_id
ORDER BY o.order_date DESC, o.id DESC`)
	}
	return dataset{}, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
}

func (e *Exporter) query(ctx context.Context, sheet string, headers []string, sql string) (dataset, error) {
	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return dataset{}, err
	}
	defer rows.Close()

	ds := dataset{sheet: sheet, headers: headers}
	values := make([]string, len(headers))
	scan := make([]any, len(headers))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return dataset{}, err
		}
		row := make([]string, len(values))
		copy(row, values)
		ds.rows = append(ds.rows, row)
	}
	return ds, rows.Err()
}

// writeCSV streams the dataset with CRLF line endings, flushing in
// batches so large exports keep a bounded buffer.
func writeCSV(w io.Writer, ds dataset) error {
	buffered := bufio.NewWriterSize(w, exportBufferSize)
	writer := csv.NewWriter(buffered)
	writer.UseCRLF = true

	if err := writer.Write(ds.headers); err != nil {
		return err
	}
	for i, row := range ds.rows {
		if err := writer.Write(row); err != nil {
			return err
		}
		if (i+1)%exportFlushEvery == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buffered.Flush()
}

func writeXLSX(w io.Writer, ds dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, ds.sheet); err != nil {
		return err
	}
	sheet = ds.sheet

	header := make([]any, len(ds.headers))
	for i, h := range ds.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range ds.rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		axis := "A" + strconv.Itoa(i+2)
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return err
		}
	}
	return f.Write(w)
}
