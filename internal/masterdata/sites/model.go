package sites

import (
	"time"
)

// SiteType distinguishes stock-holding locations from exit points.
type SiteType string

const (
	// TypeStorage sites may hold stock and act as movement endpoints.
	TypeStorage SiteType = "STORAGE"
	// TypeExit sites mark where outbound stock leaves the system.
	TypeExit SiteType = "EXIT"
)

// Valid reports whether the type is a known value.
func (t SiteType) Valid() bool {
	return t == TypeStorage || t == TypeExit
}

// Site represents a storage or exit location.
type Site struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      SiteType  `json:"type"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
