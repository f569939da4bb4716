package packs

import (
	"errors"
	"time"

	"github.com/manoam/stocks-backend/internal/inventory"
)

// PackType restricts pack execution direction.
type PackType string

const (
	PackIn  PackType = "IN"
	PackOut PackType = "OUT"
)

// Valid reports whether the type is a known value.
func (t PackType) Valid() bool {
	return t == PackIn || t == PackOut
}

// Pack is a named template of product quantities. Executing a pack
// never mutates it.
type Pack struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Type        PackType   `json:"type"`
	Description string     `json:"description,omitempty"`
	Items       []PackItem `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PackItem is one product line of a pack template.
type PackItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reference string `json:"product_reference,omitempty"`
}

// ExecuteInput drives one pack execution. An empty Condition executes
// against NEW stock.
type ExecuteInput struct {
	Type         PackType
	Multiplier   int
	SiteID       int64
	Condition    inventory.Condition
	MovementDate time.Time
	Operator     string
	Comment      string
}

// ExecutionResult reports the movements created by one execution.
type ExecutionResult struct {
	PackID    int64                `json:"pack_id"`
	Movements []inventory.Movement `json:"movements"`
}

var (
	// ErrNotFound indicates a missing pack.
	ErrNotFound = errors.New("packs: pack not found")
	// ErrNoItems rejects executing an empty pack.
	ErrNoItems = errors.New("packs: pack has no items")
	// ErrInvalidMultiplier rejects multipliers below 1.
	ErrInvalidMultiplier = errors.New("packs: multiplier must be at least 1")
)
