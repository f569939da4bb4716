package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/manoam/stocks-backend/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int, error)
	GetMovement(ctx context.Context, id int64) (Movement, error)
	AvailableStock(ctx context.Context, productID, siteID int64) ([]SiteStock, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidatorPort announces read-model invalidations after writes.
type InvalidatorPort interface {
	Bump(ctx context.Context, views ...string)
}

// Service is the movement engine: the sole writer of the stock ledger.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	invalidator InvalidatorPort
	allowNeg    bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, invalidator InvalidatorPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, invalidator: invalidator, allowNeg: cfg.AllowNegativeStock}
}

// CreateMovement validates and posts a movement atomically: the movement
// record and every touched stock row commit together or not at all.
func (s *Service) CreateMovement(ctx context.Context, input MovementInput) (Movement, error) {
	var created Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		m, err := s.PostMovementTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	s.recordAudit(ctx, created)
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, shared.ViewStocks, shared.ViewMovements, shared.ViewDashboard)
	}
	return created, nil
}

// PostMovementTx posts a movement inside an already-open transaction.
// Orders and packs call this so their own writes and the ledger update
// share one commit.
func (s *Service) PostMovementTx(ctx context.Context, tx TxRepository, input MovementInput) (Movement, error) {
	if err := validateInput(input); err != nil {
		return Movement{}, err
	}

	if input.SourceSiteID != nil {
		if err := s.checkStorageSite(ctx, tx, *input.SourceSiteID); err != nil {
			return Movement{}, err
		}
	}
	if input.TargetSiteID != nil {
		if err := s.checkStorageSite(ctx, tx, *input.TargetSiteID); err != nil {
			return Movement{}, err
		}
	}

	switch input.Type {
	case MovementOut:
		if err := s.applyDelta(ctx, tx, input.ProductID, *input.SourceSiteID, input.Condition, -input.Quantity); err != nil {
			return Movement{}, err
		}
	case MovementIn:
		if err := s.applyDelta(ctx, tx, input.ProductID, *input.TargetSiteID, input.Condition, input.Quantity); err != nil {
			return Movement{}, err
		}
	case MovementTransfer:
		// Debit first so an insufficient source rejects the whole
		// transfer before the credit leg runs.
		if err := s.applyDelta(ctx, tx, input.ProductID, *input.SourceSiteID, input.Condition, -input.Quantity); err != nil {
			return Movement{}, err
		}
		if err := s.applyDelta(ctx, tx, input.ProductID, *input.TargetSiteID, input.Condition, input.Quantity); err != nil {
			return Movement{}, err
		}
	}

	movement := Movement{
		ProductID:    input.ProductID,
		Type:         input.Type,
		SourceSiteID: input.SourceSiteID,
		TargetSiteID: input.TargetSiteID,
		Quantity:     input.Quantity,
		Condition:    input.Condition,
		MovementDate: defaultDate(input.MovementDate),
		Operator:     input.Operator,
		Comment:      input.Comment,
		Ref:          defaultRef(input.Ref),
		CreatedAt:    time.Now().UTC(),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}

// applyDelta locks the stock row, applies the change and rejects any
// result that would go negative.
func (s *Service) applyDelta(ctx context.Context, tx TxRepository, productID, siteID int64, condition Condition, delta int) error {
	stock, err := tx.GetStockForUpdate(ctx, productID, siteID)
	if err != nil && !errors.Is(err, ErrStockNotFound) {
		return err
	}
	current := stock.Quantity(condition)
	next := current + delta
	if next < 0 && !s.allowNeg {
		return &InsufficientStockError{
			ProductID: productID,
			SiteID:    siteID,
			Condition: condition,
			Available: current,
			Requested: -delta,
		}
	}
	stock.setQuantity(condition, next)
	return tx.UpsertStock(ctx, stock)
}

func (s *Service) checkStorageSite(ctx context.Context, tx TxRepository, siteID int64) error {
	site, err := tx.GetSite(ctx, siteID)
	if err != nil {
		return err
	}
	if site.Type != SiteTypeStorage || !site.IsActive {
		return fmt.Errorf("%w: site %q", ErrSiteNotStorage, site.Name)
	}
	return nil
}

// ListMovements lists movements matching the filter.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int, error) {
	return s.repo.ListMovements(ctx, filter)
}

// GetMovement loads one movement.
func (s *Service) GetMovement(ctx context.Context, id int64) (Movement, error) {
	return s.repo.GetMovement(ctx, id)
}

// AvailableStock exposes the per-site stock view so forms no longer
// recompute it from nested product payloads.
func (s *Service) AvailableStock(ctx context.Context, productID, siteID int64, condition Condition) ([]SiteStock, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	rows, err := s.repo.AvailableStock(ctx, productID, siteID)
	if err != nil {
		return nil, err
	}
	if condition == "" {
		return rows, nil
	}
	if !condition.Valid() {
		return nil, ErrInvalidCondition
	}
	filtered := make([]SiteStock, 0, len(rows))
	for _, row := range rows {
		if condition == ConditionNew {
			row.QuantityUsed = 0
		} else {
			row.QuantityNew = 0
		}
		filtered = append(filtered, row)
	}
	return filtered, nil
}

func validateInput(input MovementInput) error {
	if input.ProductID == 0 {
		return fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !input.Condition.Valid() {
		return ErrInvalidCondition
	}
	switch input.Type {
	case MovementIn:
		if input.TargetSiteID == nil {
			return ErrTargetRequired
		}
	case MovementOut:
		if input.SourceSiteID == nil {
			return ErrSourceRequired
		}
	case MovementTransfer:
		if input.SourceSiteID == nil {
			return ErrSourceRequired
		}
		if input.TargetSiteID == nil {
			return ErrTargetRequired
		}
		if *input.SourceSiteID == *input.TargetSiteID {
			return ErrSameSite
		}
	default:
		return fmt.Errorf("%w: unknown movement type %q", shared.ErrValidation, input.Type)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, m Movement) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    m.Operator,
		Action:   fmt.Sprintf("inventory:%s", m.Type),
		Entity:   "stock_movement",
		EntityID: fmt.Sprintf("%d", m.ID),
		Meta: map[string]any{
			"product_id": m.ProductID,
			"quantity":   m.Quantity,
			"condition":  string(m.Condition),
		},
	})
}

func defaultDate(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value
}

func defaultRef(ref string) string {
	if ref != "" {
		return ref
	}
	return uuid.NewString()
}
