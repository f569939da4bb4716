// Package taxonomy manages the product categorisation nodes: groups,
// assemblies and assembly types. Nodes carry no business rules beyond
// detach-on-delete referential integrity.
package taxonomy

import "time"

// ProductGroup is a flat categorisation node for products.
type ProductGroup struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssemblyType classifies assemblies; an assembly may carry several.
type AssemblyType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Assembly groups products into a buildable unit.
type Assembly struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Types       []AssemblyType `json:"types,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
