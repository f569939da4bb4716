package suppliers

import (
	"strings"
	"time"
)

// Supplier represents a supplier contact record.
type Supplier struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Contact    string   `json:"contact,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Website    string   `json:"website,omitempty"`
	Address    string   `json:"address,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	City       string   `json:"city,omitempty"`
	Country    string   `json:"country,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Comment    string   `json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullAddress assembles the postal address used for geocoding lookups.
func (s Supplier) FullAddress() string {
	parts := []string{}
	for _, p := range []string{s.Address, s.PostalCode, s.City, s.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}

// HasCoordinates reports whether both coordinates are set.
func (s Supplier) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}
