package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Create(ctx context.Context, order Order) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter Filter) ([]Order, int, error)
}

// MovementPoster is the tx-scoped movement engine entry point.
type MovementPoster interface {
	PostMovementTx(ctx context.Context, tx inventory.TxRepository, input inventory.MovementInput) (inventory.Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidatorPort announces read-model invalidations after writes.
type InvalidatorPort interface {
	Bump(ctx context.Context, views ...string)
}

// Service drives the purchase order lifecycle.
type Service struct {
	repo        RepositoryPort
	movements   MovementPoster
	audit       AuditPort
	invalidator InvalidatorPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, movements MovementPoster, audit AuditPort, invalidator InvalidatorPort) *Service {
	return &Service{repo: repo, movements: movements, audit: audit, invalidator: invalidator}
}

// Create registers a new PENDING order.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	if input.ProductID <= 0 {
		return Order{}, fmt.Errorf("%w: product required", shared.ErrValidation)
	}
	if input.SupplierID <= 0 {
		return Order{}, fmt.Errorf("%w: supplier required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return Order{}, fmt.Errorf("%w: quantity must be a positive integer", shared.ErrValidation)
	}
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	created, err := s.repo.Create(ctx, Order{
		ProductID:         input.ProductID,
		SupplierID:        input.SupplierID,
		Quantity:          input.Quantity,
		Status:            StatusPending,
		OrderDate:         orderDate,
		ExpectedDate:      input.ExpectedDate,
		DestinationSiteID: input.DestinationSiteID,
		Responsible:       input.Responsible,
		SupplierRef:       input.SupplierRef,
		Comment:           input.Comment,
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, "orders:create", created.ID, created.Responsible)
	s.bump(ctx)
	return created, nil
}

// Receive completes a PENDING order and posts the matching IN movement
// in the same transaction. Under- and over-shipment are allowed: the
// received quantity is recorded as-is.
func (s *Service) Receive(ctx context.Context, orderID int64, input ReceiveInput) (Order, error) {
	if input.ReceivedQty <= 0 {
		return Order{}, fmt.Errorf("%w: received quantity must be a positive integer", shared.ErrValidation)
	}
	receivedDate := input.ReceivedDate
	if receivedDate.IsZero() {
		receivedDate = time.Now().UTC()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, orderID, order.Status)
		}

		destination := order.DestinationSiteID
		if input.DestinationSiteID != nil {
			destination = input.DestinationSiteID
		}
		if destination == nil {
			return fmt.Errorf("%w: order %d has no destination and none was supplied", ErrDestinationRequired, orderID)
		}

		if err := tx.MarkReceived(ctx, orderID, receivedDate, input.ReceivedQty, *destination); err != nil {
			return err
		}

		comment := fmt.Sprintf("order #%d", orderID)
		if input.Comment != "" {
			comment = fmt.Sprintf("%s: %s", comment, input.Comment)
		}
		_, err = s.movements.PostMovementTx(ctx, tx.Ledger(), inventory.MovementInput{
			ProductID:    order.ProductID,
			Type:         inventory.MovementIn,
			TargetSiteID: destination,
			Quantity:     input.ReceivedQty,
			Condition:    input.Condition,
			MovementDate: receivedDate,
			Operator:     input.Operator,
			Comment:      comment,
			Ref:          fmt.Sprintf("order-%d", orderID),
		})
		return err
	})
	if err != nil {
		return Order{}, err
	}

	s.recordAudit(ctx, "orders:receive", orderID, input.Operator)
	s.bump(ctx)
	return s.repo.Get(ctx, orderID)
}

// Cancel moves a PENDING order to CANCELLED. No ledger effect.
func (s *Service) Cancel(ctx context.Context, orderID int64) (Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusPending {
			return fmt.Errorf("%w: order %d is %s", ErrInvalidState, orderID, order.Status)
		}
		return tx.MarkCancelled(ctx, orderID)
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, "orders:cancel", orderID, "")
	s.bump(ctx)
	return s.repo.Get(ctx, orderID)
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List lists orders matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recordAudit(ctx context.Context, action string, orderID int64, actor string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "order",
		EntityID: fmt.Sprintf("%d", orderID),
	})
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator != nil {
		s.invalidator.Bump(ctx, shared.ViewOrders, shared.ViewStocks, shared.ViewMovements, shared.ViewDashboard)
	}
}
