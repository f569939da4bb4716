package inventory

import (
	"errors"
	"fmt"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement.
	MovementOut MovementType = "OUT"
	// MovementTransfer moves stock between two storage sites.
	MovementTransfer MovementType = "TRANSFER"
)

// Condition is the second dimension of stock quantity alongside site.
type Condition string

const (
	ConditionNew  Condition = "NEW"
	ConditionUsed Condition = "USED"
)

// Valid reports whether the condition is a known value.
func (c Condition) Valid() bool {
	return c == ConditionNew || c == ConditionUsed
}

// Movement is an immutable record of a stock quantity change. Corrections
// are new offsetting movements, never edits.
type Movement struct {
	ID           int64        `json:"id"`
	ProductID    int64        `json:"product_id"`
	Type         MovementType `json:"type"`
	SourceSiteID *int64       `json:"source_site_id,omitempty"`
	TargetSiteID *int64       `json:"target_site_id,omitempty"`
	Quantity     int          `json:"quantity"`
	Condition    Condition    `json:"condition"`
	MovementDate time.Time    `json:"movement_date"`
	Operator     string       `json:"operator,omitempty"`
	Comment      string       `json:"comment,omitempty"`
	Ref          string       `json:"ref,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`

	// Resolved for display.
	ProductReference string `json:"product_reference,omitempty"`
	SourceSiteName   string `json:"source_site_name,omitempty"`
	TargetSiteName   string `json:"target_site_name,omitempty"`
}

// Stock summarises the current quantity of a product at one site, split
// by condition. Maintained exclusively by the movement engine.
type Stock struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	SiteID       int64     `json:"site_id"`
	QuantityNew  int       `json:"quantity_new"`
	QuantityUsed int       `json:"quantity_used"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Quantity returns the stored quantity for a condition.
func (s Stock) Quantity(c Condition) int {
	if c == ConditionUsed {
		return s.QuantityUsed
	}
	return s.QuantityNew
}

func (s *Stock) setQuantity(c Condition, qty int) {
	if c == ConditionUsed {
		s.QuantityUsed = qty
		return
	}
	s.QuantityNew = qty
}

// SiteRef carries the site attributes the engine validates against.
type SiteRef struct {
	ID       int64
	Name     string
	Type     string
	IsActive bool
}

// SiteTypeStorage marks sites that may hold stock.
const SiteTypeStorage = "STORAGE"

// MovementInput describes a movement to post.
type MovementInput struct {
	ProductID    int64
	Type         MovementType
	SourceSiteID *int64
	TargetSiteID *int64
	Quantity     int
	Condition    Condition
	MovementDate time.Time
	Operator     string
	Comment      string
	Ref          string
}

// MovementFilter filters movement listings.
type MovementFilter struct {
	Type      MovementType
	SiteID    int64
	ProductID int64
	From      time.Time
	To        time.Time
	Page      int
	Limit     int
}

// SiteStock is one row of the available-stock view.
type SiteStock struct {
	SiteID       int64  `json:"site_id"`
	SiteName     string `json:"site_name"`
	QuantityNew  int    `json:"quantity_new"`
	QuantityUsed int    `json:"quantity_used"`
}

// InsufficientStockError is returned when an OUT or TRANSFER would drive
// a quantity negative. The operation is rejected in full.
type InsufficientStockError struct {
	ProductID int64
	SiteID    int64
	Condition Condition
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %d at site %d (%s): available %d, requested %d",
		e.ProductID, e.SiteID, e.Condition, e.Available, e.Requested)
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be a positive integer")
	// ErrInvalidCondition indicates an unknown condition value.
	ErrInvalidCondition = errors.New("inventory: condition must be NEW or USED")
	// ErrSourceRequired triggered when OUT/TRANSFER lacks a source site.
	ErrSourceRequired = errors.New("inventory: source site required")
	// ErrTargetRequired triggered when IN/TRANSFER lacks a target site.
	ErrTargetRequired = errors.New("inventory: target site required")
	// ErrSameSite triggered when a transfer names the same site twice.
	ErrSameSite = errors.New("inventory: source and target site must differ")
	// ErrSiteNotStorage triggered when a movement touches a non-storage
	// or inactive site.
	ErrSiteNotStorage = errors.New("inventory: site must be an active storage site")
	// ErrMovementNotFound indicates a missing movement record.
	ErrMovementNotFound = errors.New("inventory: movement not found")
)
