package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

var (
	// ErrProductInUse blocks deletion of a product with ledger history.
	ErrProductInUse = errors.New("product is referenced by movements, orders or stock")
	// ErrReferenceImmutable rejects updates that change the reference.
	ErrReferenceImmutable = errors.New("product reference cannot be changed")
)

// InvalidatorPort announces read-model invalidations after writes.
type InvalidatorPort interface {
	Bump(ctx context.Context, views ...string)
}

type Service struct {
	repo        Repository
	invalidator InvalidatorPort
}

func NewService(repo Repository, invalidator InvalidatorPort) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product, true); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.bump(ctx)
	return created, nil
}

// Update modifies mutable fields. A request carrying a reference that
// differs from the stored one is rejected.
func (s *Service) Update(ctx context.Context, id int64, product Product) (Product, error) {
	if id <= 0 {
		return Product{}, ErrNotFound
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if product.Reference != "" && product.Reference != existing.Reference {
		return Product{}, fmt.Errorf("%w: %w", internalshared.ErrValidation, ErrReferenceImmutable)
	}
	if err := s.validate(product, false); err != nil {
		return Product{}, err
	}
	if err := s.repo.Update(ctx, id, product); err != nil {
		return Product{}, err
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
		return fmt.Errorf("%w (%d references)", ErrProductInUse, refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// LinkSupplier attaches a supplier with pricing terms. A link created
// as primary clears any previous primary.
func (s *Service) LinkSupplier(ctx context.Context, productID, supplierID int64, input LinkInput) (ProductSupplier, error) {
	if productID <= 0 {
		return ProductSupplier{}, ErrNotFound
	}
	if supplierID <= 0 {
		return ProductSupplier{}, fmt.Errorf("%w: supplier is required", internalshared.ErrValidation)
	}
	if err := validateLink(input); err != nil {
		return ProductSupplier{}, err
	}
	// Insert non-primary and let SetPrimary flip the flag: its single
	// UPDATE clears the old primary and sets the new one together, so
	// no intermediate state ever holds two primaries.
	link, err := s.repo.CreateLink(ctx, ProductSupplier{
		ProductID:    productID,
		SupplierID:   supplierID,
		SupplierRef:  input.SupplierRef,
		UnitPrice:    input.UnitPrice,
		LeadTime:     input.LeadTime,
		ProductURL:   input.ProductURL,
		ShippingCost: input.ShippingCost,
	})
	if err != nil {
		return ProductSupplier{}, err
	}
	if input.IsPrimary {
		if err := s.repo.SetPrimary(ctx, productID, supplierID); err != nil {
			return ProductSupplier{}, err
		}
		link.IsPrimary = true
	}
	s.bump(ctx)
	return link, nil
}

// UpdateLink changes the pricing terms of an existing link.
func (s *Service) UpdateLink(ctx context.Context, productID, supplierID int64, input LinkInput) (ProductSupplier, error) {
	if err := validateLink(input); err != nil {
		return ProductSupplier{}, err
	}
	existing, err := s.repo.GetLink(ctx, productID, supplierID)
	if err != nil {
		return ProductSupplier{}, err
	}
	priceChanged := !floatPtrEqual(existing.UnitPrice, input.UnitPrice)
	if err := s.repo.UpdateLink(ctx, productID, supplierID, input, priceChanged); err != nil {
		return ProductSupplier{}, err
	}
	if input.IsPrimary && !existing.IsPrimary {
		if err := s.repo.SetPrimary(ctx, productID, supplierID); err != nil {
			return ProductSupplier{}, err
		}
	}
	s.bump(ctx)
	return s.repo.GetLink(ctx, productID, supplierID)
}

// UnlinkSupplier detaches a supplier from a product.
func (s *Service) UnlinkSupplier(ctx context.Context, productID, supplierID int64) error {
	if err := s.repo.DeleteLink(ctx, productID, supplierID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// SetPrimarySupplier marks one link primary, atomically clearing the
// previous one.
func (s *Service) SetPrimarySupplier(ctx context.Context, productID, supplierID int64) (ProductSupplier, error) {
	if err := s.repo.SetPrimary(ctx, productID, supplierID); err != nil {
		return ProductSupplier{}, err
	}
	s.bump(ctx)
	return s.repo.GetLink(ctx, productID, supplierID)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, internalshared.ViewProducts, internalshared.ViewDashboard)
	}
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
