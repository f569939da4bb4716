package orders

import (
	"errors"
	"time"

	"github.com/manoam/stocks-backend/internal/inventory"
)

// Status is the purchase order state. COMPLETED and CANCELLED are
// terminal: only PENDING orders may transition.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Order represents a purchase order for a single product.
type Order struct {
	ID                int64      `json:"id"`
	ProductID         int64      `json:"product_id"`
	SupplierID        int64      `json:"supplier_id"`
	Quantity          int        `json:"quantity"`
	Status            Status     `json:"status"`
	OrderDate         time.Time  `json:"order_date"`
	ExpectedDate      *time.Time `json:"expected_date,omitempty"`
	ReceivedDate      *time.Time `json:"received_date,omitempty"`
	ReceivedQty       *int       `json:"received_qty,omitempty"`
	DestinationSiteID *int64     `json:"destination_site_id,omitempty"`
	Responsible       string     `json:"responsible,omitempty"`
	SupplierRef       string     `json:"supplier_ref,omitempty"`
	Comment           string     `json:"comment,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Resolved for display.
	ProductReference string `json:"product_reference,omitempty"`
	SupplierName     string `json:"supplier_name,omitempty"`
}

// CreateInput describes a new order.
type CreateInput struct {
	ProductID         int64
	SupplierID        int64
	Quantity          int
	OrderDate         time.Time
	ExpectedDate      *time.Time
	DestinationSiteID *int64
	Responsible       string
	SupplierRef       string
	Comment           string
}

// ReceiveInput completes a pending order. DestinationSiteID overrides
// the order's destination when the order was created without one.
type ReceiveInput struct {
	ReceivedDate      time.Time
	ReceivedQty       int
	Condition         inventory.Condition
	Comment           string
	DestinationSiteID *int64
	Operator          string
}

// Filter filters order listings.
type Filter struct {
	Status     Status
	SupplierID int64
	ProductID  int64
	Page       int
	Limit      int
}

var (
	// ErrNotFound indicates a missing order.
	ErrNotFound = errors.New("orders: order not found")
	// ErrInvalidState rejects transitions on non-PENDING orders.
	ErrInvalidState = errors.New("orders: order is not pending")
	// ErrDestinationRequired is returned when neither the order nor the
	// receive payload names a destination site.
	ErrDestinationRequired = errors.New("orders: destination site required to receive")
)
