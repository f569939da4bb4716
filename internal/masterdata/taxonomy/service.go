package taxonomy

import (
	"context"
	"fmt"
	"strings"

	internalshared "github.com/manoam/stocks-backend/internal/shared"
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

func (s *Service) ListGroups(ctx context.Context) ([]ProductGroup, error) {
	return s.repo.ListGroups(ctx)
}

func (s *Service) CreateGroup(ctx context.Context, group ProductGroup) (ProductGroup, error) {
	if err := requireName(group.Name); err != nil {
		return ProductGroup{}, err
	}
	created, err := s.repo.CreateGroup(ctx, group)
	if err != nil {
		return ProductGroup{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *Service) UpdateGroup(ctx context.Context, id int64, group ProductGroup) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := requireName(group.Name); err != nil {
		return err
	}
	if err := s.repo.UpdateGroup(ctx, id, group); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) ListAssemblies(ctx context.Context) ([]Assembly, error) {
	return s.repo.ListAssemblies(ctx)
}

func (s *Service) CreateAssembly(ctx context.Context, assembly Assembly, typeIDs []int64) (Assembly, error) {
	if err := requireName(assembly.Name); err != nil {
		return Assembly{}, err
	}
	created, err := s.repo.CreateAssembly(ctx, assembly, typeIDs)
	if err != nil {
		return Assembly{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *Service) UpdateAssembly(ctx context.Context, id int64, assembly Assembly, typeIDs []int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := requireName(assembly.Name); err != nil {
		return err
	}
	if err := s.repo.UpdateAssembly(ctx, id, assembly, typeIDs); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) DeleteAssembly(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.DeleteAssembly(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) ListAssemblyTypes(ctx context.Context) ([]AssemblyType, error) {
	return s.repo.ListAssemblyTypes(ctx)
}

func (s *Service) CreateAssemblyType(ctx context.Context, t AssemblyType) (AssemblyType, error) {
	if err := requireName(t.Name); err != nil {
		return AssemblyType{}, err
	}
	created, err := s.repo.CreateAssemblyType(ctx, t)
	if err != nil {
		return AssemblyType{}, err
	}
	s.bump(ctx)
	return created, nil
}

func (s *Service) DeleteAssemblyType(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.DeleteAssemblyType(ctx, id); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, internalshared.ViewProducts)
	}
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", internalshared.ErrValidation)
	}
	if len(name) > 120 {
		return fmt.Errorf("%w: name must be at most 120 characters", internalshared.ErrValidation)
	}
	return nil
}
