package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manoam/stocks-backend/internal/inventory"
	"github.com/manoam/stocks-backend/internal/shared"
)

type fakeLedger struct {
	sites     map[int64]inventory.SiteRef
	stocks    map[[2]int64]inventory.Stock
	movements []inventory.Movement
	nextID    int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		sites:  map[int64]inventory.SiteRef{},
		stocks: map[[2]int64]inventory.Stock{},
		nextID: 1,
	}
}

func (f *fakeLedger) GetSite(_ context.Context, id int64) (inventory.SiteRef, error) {
	site, ok := f.sites[id]
	if !ok {
		return inventory.SiteRef{}, inventory.ErrSiteNotFound
	}
	return site, nil
}

func (f *fakeLedger) GetStockForUpdate(_ context.Context, productID, siteID int64) (inventory.Stock, error) {
	stock, ok := f.stocks[[2]int64{productID, siteID}]
	if !ok {
		return inventory.Stock{ProductID: productID, SiteID: siteID}, inventory.ErrStockNotFound
	}
	return stock, nil
}

func (f *fakeLedger) UpsertStock(_ context.Context, stock inventory.Stock) error {
	f.stocks[[2]int64{stock.ProductID, stock.SiteID}] = stock
	return nil
}

func (f *fakeLedger) InsertMovement(_ context.Context, m inventory.Movement) (int64, error) {
	id := f.nextID
	f.nextID++
	m.ID = id
	f.movements = append(f.movements, m)
	return id, nil
}

type fakeRepo struct {
	orders map[int64]Order
	ledger *fakeLedger
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[int64]Order{}, ledger: newFakeLedger(), nextID: 1}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	ordersSnap := make(map[int64]Order, len(f.orders))
	for k, v := range f.orders {
		ordersSnap[k] = v
	}
	stocksSnap := make(map[[2]int64]inventory.Stock, len(f.ledger.stocks))
	for k, v := range f.ledger.stocks {
		stocksSnap[k] = v
	}
	movementsBefore := len(f.ledger.movements)

	if err := fn(ctx, f); err != nil {
		f.orders = ordersSnap
		f.ledger.stocks = stocksSnap
		f.ledger.movements = f.ledger.movements[:movementsBefore]
		return err
	}
	return nil
}

func (f *fakeRepo) Ledger() inventory.TxRepository { return f.ledger }

func (f *fakeRepo) GetOrderForUpdate(_ context.Context, id int64) (Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (f *fakeRepo) MarkReceived(_ context.Context, id int64, receivedDate time.Time, receivedQty int, destinationSiteID int64) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = StatusCompleted
	o.ReceivedDate = &receivedDate
	o.ReceivedQty = &receivedQty
	o.DestinationSiteID = &destinationSiteID
	f.orders[id] = o
	return nil
}

func (f *fakeRepo) MarkCancelled(_ context.Context, id int64) error {
	o, ok := f.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = StatusCancelled
	f.orders[id] = o
	return nil
}

func (f *fakeRepo) Create(_ context.Context, o Order) (Order, error) {
	o.ID = f.nextID
	f.nextID++
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (f *fakeRepo) List(_ context.Context, _ Filter) ([]Order, int, error) {
	out := []Order{}
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func ptr(v int64) *int64 { return &v }

func newTestService(repo *fakeRepo) *Service {
	engine := inventory.NewService(nil, nil, nil, inventory.ServiceConfig{})
	return NewService(repo, engine, nil, nil)
}

func TestCreateOrder(t *testing.T) {
	svc := newTestService(newFakeRepo())

	order, err := svc.Create(context.Background(), CreateInput{ProductID: 1, SupplierID: 2, Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, StatusPending, order.Status)
	require.False(t, order.OrderDate.IsZero())
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())

	_, err := svc.Create(context.Background(), CreateInput{SupplierID: 2, Quantity: 5})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{ProductID: 1, SupplierID: 2, Quantity: 0})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReceiveOrder(t *testing.T) {
	repo := newFakeRepo()
	repo.ledger.sites[1] = inventory.SiteRef{ID: 1, Name: "Depot", Type: inventory.SiteTypeStorage, IsActive: true}
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 10, SupplierID: 2, Quantity: 5, DestinationSiteID: ptr(1),
	})
	require.NoError(t, err)

	received, err := svc.Receive(context.Background(), order.ID, ReceiveInput{
		ReceivedQty: 5, Condition: inventory.ConditionNew,
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, received.Status)
	require.Equal(t, 5, *received.ReceivedQty)

	require.Equal(t, 5, repo.ledger.stocks[[2]int64{10, 1}].QuantityNew)
	require.Len(t, repo.ledger.movements, 1)
	m := repo.ledger.movements[0]
	require.Equal(t, inventory.MovementIn, m.Type)
	require.True(t, strings.Contains(m.Comment, "order #"))
}

func TestReceiveOrderUnderShipmentAllowed(t *testing.T) {
	repo := newFakeRepo()
	repo.ledger.sites[1] = inventory.SiteRef{ID: 1, Type: inventory.SiteTypeStorage, IsActive: true}
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 10, SupplierID: 2, Quantity: 20, DestinationSiteID: ptr(1),
	})
	require.NoError(t, err)

	received, err := svc.Receive(context.Background(), order.ID, ReceiveInput{
		ReceivedQty: 12, Condition: inventory.ConditionNew,
	})
	require.NoError(t, err)
	require.Equal(t, 12, *received.ReceivedQty)
	require.Equal(t, 12, repo.ledger.stocks[[2]int64{10, 1}].QuantityNew)
}

func TestReceiveOrderNotPending(t *testing.T) {
	repo := newFakeRepo()
	repo.ledger.sites[1] = inventory.SiteRef{ID: 1, Type: inventory.SiteTypeStorage, IsActive: true}
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 10, SupplierID: 2, Quantity: 5, DestinationSiteID: ptr(1),
	})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), order.ID, ReceiveInput{ReceivedQty: 5, Condition: inventory.ConditionNew})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), order.ID, ReceiveInput{ReceivedQty: 5, Condition: inventory.ConditionNew})
	require.ErrorIs(t, err, ErrInvalidState)
	// Second receive left the ledger alone.
	require.Equal(t, 5, repo.ledger.stocks[[2]int64{10, 1}].QuantityNew)
	require.Len(t, repo.ledger.movements, 1)
}

func TestReceiveOrderWithoutDestinationRejected(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{ProductID: 10, SupplierID: 2, Quantity: 5})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), order.ID, ReceiveInput{ReceivedQty: 5, Condition: inventory.ConditionNew})
	require.ErrorIs(t, err, ErrDestinationRequired)
	require.Equal(t, StatusPending, repo.orders[order.ID].Status)
}

func TestReceiveOrderDestinationSuppliedAtReceiveTime(t *testing.T) {
	repo := newFakeRepo()
	repo.ledger.sites[3] = inventory.SiteRef{ID: 3, Type: inventory.SiteTypeStorage, IsActive: true}
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{ProductID: 10, SupplierID: 2, Quantity: 5})
	require.NoError(t, err)

	received, err := svc.Receive(context.Background(), order.ID, ReceiveInput{
		ReceivedQty: 5, Condition: inventory.ConditionNew, DestinationSiteID: ptr(3),
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), *received.DestinationSiteID)
	require.Equal(t, 5, repo.ledger.stocks[[2]int64{10, 3}].QuantityNew)
}

func TestReceiveOrderRollsBackWhenMovementFails(t *testing.T) {
	repo := newFakeRepo()
	// Destination exists but is an EXIT site: movement posting fails
	// after the order row was already marked received.
	repo.ledger.sites[1] = inventory.SiteRef{ID: 1, Type: "EXIT", IsActive: true}
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{
		ProductID: 10, SupplierID: 2, Quantity: 5, DestinationSiteID: ptr(1),
	})
	require.NoError(t, err)

	_, err = svc.Receive(context.Background(), order.ID, ReceiveInput{ReceivedQty: 5, Condition: inventory.ConditionNew})
	require.ErrorIs(t, err, inventory.ErrSiteNotStorage)

	// Neither the state transition nor any movement survived.
	require.Equal(t, StatusPending, repo.orders[order.ID].Status)
	require.Nil(t, repo.orders[order.ID].ReceivedQty)
	require.Empty(t, repo.ledger.movements)
	require.Empty(t, repo.ledger.stocks)
}

func TestCancelOrder(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	order, err := svc.Create(context.Background(), CreateInput{ProductID: 10, SupplierID: 2, Quantity: 5})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Empty(t, repo.ledger.movements)

	_, err = svc.Cancel(context.Background(), order.ID)
	require.ErrorIs(t, err, ErrInvalidState)
}
