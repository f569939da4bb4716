package products

import (
	"time"
)

// SupplyRisk grades how hard a product is to source.
type SupplyRisk string

const (
	RiskLow    SupplyRisk = "LOW"
	RiskMedium SupplyRisk = "MEDIUM"
	RiskHigh   SupplyRisk = "HIGH"
)

// Valid reports whether the risk is a known value. Empty is allowed.
func (r SupplyRisk) Valid() bool {
	return r == "" || r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Product represents a catalog entry. The reference is the natural key
// and never changes after creation.
type Product struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	Description string     `json:"description,omitempty"`
	QtyPerUnit  int        `json:"qty_per_unit"`
	SupplyRisk  SupplyRisk `json:"supply_risk,omitempty"`
	Location    string     `json:"location,omitempty"`
	GroupID     *int64     `json:"group_id,omitempty"`
	AssemblyID  *int64     `json:"assembly_id,omitempty"`
	Comment     string     `json:"comment,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Suppliers []ProductSupplier `json:"suppliers,omitempty"`
}

// ProductSupplier links a product to a supplier with pricing terms.
type ProductSupplier struct {
	ID             int64      `json:"id"`
	ProductID      int64      `json:"product_id"`
	SupplierID     int64      `json:"supplier_id"`
	SupplierName   string     `json:"supplier_name,omitempty"`
	SupplierRef    string     `json:"supplier_ref,omitempty"`
	UnitPrice      *float64   `json:"unit_price,omitempty"`
	LeadTime       *int       `json:"lead_time,omitempty"`
	ProductURL     string     `json:"product_url,omitempty"`
	ShippingCost   *float64   `json:"shipping_cost,omitempty"`
	IsPrimary      bool       `json:"is_primary"`
	PriceUpdatedAt *time.Time `json:"price_updated_at,omitempty"`
}

// LinkInput carries the mutable attributes of a supplier link.
type LinkInput struct {
	SupplierRef  string
	UnitPrice    *float64
	LeadTime     *int
	ProductURL   string
	ShippingCost *float64
	IsPrimary    bool
}
