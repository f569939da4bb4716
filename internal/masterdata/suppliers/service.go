package suppliers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/manoam/stocks-backend/internal/geo"
	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

// ErrSupplierInUse blocks deletion of a supplier referenced by product
// links or orders.
var ErrSupplierInUse = errors.New("supplier is referenced by products or orders")

// InvalidatorPort announces read-model invalidations after writes.
type InvalidatorPort interface {
	Bump(ctx context.Context, views ...string)
}

type Service struct {
	repo        Repository
	geocoder    geo.AddressGeocoder
	invalidator InvalidatorPort
	logger      *slog.Logger
}

func NewService(repo Repository, geocoder geo.AddressGeocoder, invalidator InvalidatorPort, logger *slog.Logger) *Service {
	if geocoder == nil {
		geocoder = geo.Noop{}
	}
	return &Service{repo: repo, geocoder: geocoder, invalidator: invalidator, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	s.geocode(ctx, &supplier)
	created, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, ErrNotFound
	}
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	s.geocode(ctx, &supplier)
	if err := s.repo.Update(ctx, id, supplier); err != nil {
		return Supplier{}, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w (%d references)", ErrSupplierInUse, refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// geocode fills missing coordinates from the address fields. Lookup
// failures are logged and never block the save.
func (s *Service) geocode(ctx context.Context, supplier *Supplier) {
	if supplier.HasCoordinates() {
		return
	}
	address := supplier.FullAddress()
	if address == "" {
		return
	}
	coords, err := s.geocoder.Locate(ctx, address)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("supplier geocoding failed",
				slog.String("name", supplier.Name), slog.Any("error", err))
		}
		return
	}
	if coords == nil {
		return
	}
	supplier.Latitude = &coords.Latitude
	supplier.Longitude = &coords.Longitude
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, internalshared.ViewSuppliers, internalshared.ViewDashboard)
	}
}
