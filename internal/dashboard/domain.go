package dashboard

import "time"

// Stats is the headline aggregate block.
type Stats struct {
	TotalProducts   int `json:"total_products"`
	TotalSites      int `json:"total_sites"`
	TotalSuppliers  int `json:"total_suppliers"`
	TotalStockUnits int `json:"total_stock_units"`
	PendingOrders   int `json:"pending_orders"`
	LowStockCount   int `json:"low_stock_count"`
}

// Alert flags a product whose total quantity fell below the threshold.
type Alert struct {
	ProductID   int64  `json:"product_id"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
	TotalQty    int    `json:"total_qty"`
	Threshold   int    `json:"threshold"`
}

// SeriesPoint is one day of movement activity.
type SeriesPoint struct {
	Day time.Time `json:"day"`
	In  int       `json:"in"`
	Out int       `json:"out"`
}
