package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

// ErrSiteInUse blocks deletion of a site referenced by the ledger.
var ErrSiteInUse = errors.New("site is referenced by stock or movements")

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Site, error) {
	if id <= 0 {
		return Site{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, site Site) (Site, error) {
	if err := s.validate(site); err != nil {
		return Site{}, err
	}
	created, err := s.repo.Create(ctx, site)
	if err != nil {
		return Site{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, site Site) (Site, error) {
	if id <= 0 {
		return Site{}, ErrNotFound
	}
	if err := s.validate(site); err != nil {
		return Site{}, err
	}
	if err := s.repo.Update(ctx, id, site); err != nil {
		return Site{}, err
	}
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes a site. Sites holding stock or named by movements are
// protected: disable them via is_active instead.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w (%d references)", ErrSiteInUse, refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, internalshared.ViewSites, internalshared.ViewDashboard)
	}
}
