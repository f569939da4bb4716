package packs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Get(ctx context.Context, id int64) (Pack, error)
	List(ctx context.Context) ([]Pack, error)
	Create(ctx context.Context, pack Pack) (Pack, error)
	Update(ctx context.Context, id int64, pack Pack) error
	Delete(ctx context.Context, id int64) error
}

// MovementPoster is the tx-scoped movement engine entry point.
type MovementPoster interface {
	PostMovementTx(ctx context.Context, tx inventory.TxRepository, input inventory.MovementInput) (inventory.Movement, error)
}

// InvalidatorPort announces read-model invalidations after writes.
type InvalidatorPort interface {
	Bump(ctx context.Context, views ...string)
}

// Service manages pack templates and their execution.
type Service struct {
	repo        RepositoryPort
	movements   MovementPoster
	invalidator InvalidatorPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, movements MovementPoster, invalidator InvalidatorPort) *Service {
	return &Service{repo: repo, movements: movements, invalidator: invalidator}
}

func (s *Service) List(ctx context.Context) ([]Pack, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Pack, error) {
	if id <= 0 {
		return Pack{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, pack Pack) (Pack, error) {
	if err := validatePack(pack); err != nil {
		return Pack{}, err
	}
	created, err := s.repo.Create(ctx, pack)
	if err != nil {
		return Pack{}, err
	}
	s.bumpTemplates(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, pack Pack) (Pack, error) {
	if id <= 0 {
		return Pack{}, ErrNotFound
	}
	if err := validatePack(pack); err != nil {
		return Pack{}, err
	}
	if err := s.repo.Update(ctx, id, pack); err != nil {
		return Pack{}, err
	}
	s.bumpTemplates(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bumpTemplates(ctx)
	return nil
}

// Execute expands the pack into one movement per item, scaled by the
// multiplier, inside a single transaction: either every item posts or
// none do.
func (s *Service) Execute(ctx context.Context, packID int64, input ExecuteInput) (ExecutionResult, error) {
	if input.Multiplier < 1 {
		return ExecutionResult{}, fmt.Errorf("%w: %w", shared.ErrValidation, ErrInvalidMultiplier)
	}
	if !input.Type.Valid() {
		return ExecutionResult{}, fmt.Errorf("%w: pack type must be IN or OUT", shared.ErrValidation)
	}
	if input.SiteID <= 0 {
		return ExecutionResult{}, fmt.Errorf("%w: site required", shared.ErrValidation)
	}
	condition := input.Condition
	if condition == "" {
		condition = inventory.ConditionNew
	}
	if !condition.Valid() {
		return ExecutionResult{}, fmt.Errorf("%w: %w", shared.ErrValidation, inventory.ErrInvalidCondition)
	}

	movementDate := input.MovementDate
	if movementDate.IsZero() {
		movementDate = time.Now().UTC()
	}

	result := ExecutionResult{PackID: packID}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		pack, err := tx.GetPack(ctx, packID)
		if err != nil {
			return err
		}
		if len(pack.Items) == 0 {
			return ErrNoItems
		}

		comment := fmt.Sprintf("pack: %s", pack.Name)
		if input.Comment != "" {
			comment = fmt.Sprintf("%s (%s)", comment, input.Comment)
		}

		ledger := tx.Ledger()
		for _, item := range pack.Items {
			movementInput := inventory.MovementInput{
				ProductID:    item.ProductID,
				Type:         inventory.MovementType(input.Type),
				Quantity:     item.Quantity * input.Multiplier,
				Condition:    condition,
				MovementDate: movementDate,
				Operator:     input.Operator,
				Comment:      comment,
				Ref:          fmt.Sprintf("pack-%d", packID),
			}
			if input.Type == PackIn {
				movementInput.TargetSiteID = &input.SiteID
			} else {
				movementInput.SourceSiteID = &input.SiteID
			}

			movement, err := s.movements.PostMovementTx(ctx, ledger, movementInput)
			if err != nil {
				return fmt.Errorf("item %s: %w", item.Reference, err)
			}
			result.Movements = append(result.Movements, movement)
		}
		return nil
	})
	if err != nil {
		return ExecutionResult{}, err
	}

	if s.invalidator != nil {
		s.invalidator.Bump(ctx, shared.ViewStocks, shared.ViewMovements, shared.ViewDashboard)
	}
	return result, nil
}

func (s *Service) bumpTemplates(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, shared.ViewPacks)
	}
}

func validatePack(pack Pack) error {
	if strings.TrimSpace(pack.Name) == "" {
		return fmt.Errorf("%w: pack name is required", shared.ErrValidation)
	}
	if !pack.Type.Valid() {
		return fmt.Errorf("%w: pack type must be IN or OUT", shared.ErrValidation)
	}
	for _, item := range pack.Items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: pack item product required", shared.ErrValidation)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: pack item quantity must be a positive integer", shared.ErrValidation)
		}
	}
	return nil
}
