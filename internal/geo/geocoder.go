// Package geo resolves postal addresses to coordinates through an
// injected geocoding capability. Lookups are advisory: callers treat a
// failure as "no coordinates", never as a save-blocking error.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AddressGeocoder locates an address. A nil result with nil error means
// the address could not be resolved.
type AddressGeocoder interface {
	Locate(ctx context.Context, address string) (*Coordinates, error)
}

// HTTPGeocoder talks to a Nominatim-compatible search endpoint.
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGeocoder constructs the client. baseURL is the service root,
// e.g. https://nominatim.openstreetmap.org.
func NewHTTPGeocoder(baseURL string, timeout time.Duration) *HTTPGeocoder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Locate resolves the given free-form address.
func (g *HTTPGeocoder) Locate(ctx context.Context, address string) (*Coordinates, error) {
	if address == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", g.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude: %w", err)
	}
	return &Coordinates{Latitude: lat, Longitude: lon}, nil
}

// Noop never resolves anything. Used in tests and when no geocoder is
// configured.
type Noop struct{}

// Locate always reports "not found".
func (Noop) Locate(context.Context, string) (*Coordinates, error) {
	return nil, nil
}
