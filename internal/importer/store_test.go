package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manoam/stocks-backend/internal/inventory"
)

// fakeLedger stands in for the transactional ledger a stock
// reconciliation runs against. withTx models the surrounding
// transaction: a failed callback restores the snapshot.
type fakeLedger struct {
	sites        map[int64]inventory.SiteRef
	stocks       map[[2]int64]inventory.Stock
	movements    []inventory.Movement
	inserts      int
	failInsertAt int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		sites:  map[int64]inventory.SiteRef{},
		stocks: map[[2]int64]inventory.Stock{},
	}
}

func (f *fakeLedger) withTx(fn func(inventory.TxRepository) error) error {
	snapshot := make(map[[2]int64]inventory.Stock, len(f.stocks))
	for k, v := range f.stocks {
		snapshot[k] = v
	}
	before := len(f.movements)
	if err := fn(f); err != nil {
		f.stocks = snapshot
		f.movements = f.movements[:before]
		return err
	}
	return nil
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
	f.inserts++
	if f.failInsertAt > 0 && f.inserts >= f.failInsertAt {
		return 0, errors.New("ledger write refused")
	}
	m.ID = int64(f.inserts)
	f.movements = append(f.movements, m)
	return m.ID, nil
}

func reconcileEngine() *inventory.Service {
	return inventory.NewService(nil, nil, nil, inventory.ServiceConfig{})
}

func TestReconcileStockPostsBothLegs(t *testing.T) {
	ledger := newFakeLedger()
	ledger.sites[1] = inventory.SiteRef{ID: 1, Name: "central", Type: inventory.SiteTypeStorage, IsActive: true}
	ledger.stocks[[2]int64{10, 1}] = inventory.Stock{ProductID: 10, SiteID: 1, QuantityNew: 5, QuantityUsed: 2}

	var outcome Outcome
	err := ledger.withTx(func(tx inventory.TxRepository) error {
		var err error
		outcome, err = reconcileStock(context.Background(), tx, reconcileEngine(), 10, 1,
			StockRow{ProductReference: "REF-10", SiteName: "central", QuantityNew: 8, QuantityUsed: 1})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, outcome)

	stock := ledger.stocks[[2]int64{10, 1}]
	require.Equal(t, 8, stock.QuantityNew)
	require.Equal(t, 1, stock.QuantityUsed)

	require.Len(t, ledger.movements, 2)
	require.Equal(t, inventory.MovementIn, ledger.movements[0].Type)
	require.Equal(t, inventory.ConditionNew, ledger.movements[0].Condition)
	require.Equal(t, 3, ledger.movements[0].Quantity)
	require.Equal(t, inventory.MovementOut, ledger.movements[1].Type)
	require.Equal(t, inventory.ConditionUsed, ledger.movements[1].Condition)
	require.Equal(t, 1, ledger.movements[1].Quantity)
}

func TestReconcileStockCreatesMissingRow(t *testing.T) {
	ledger := newFakeLedger()
	ledger.sites[1] = inventory.SiteRef{ID: 1, Name: "central", Type: inventory.SiteTypeStorage, IsActive: true}

	var outcome Outcome
	err := ledger.withTx(func(tx inventory.TxRepository) error {
		var err error
		outcome, err = reconcileStock(context.Background(), tx, reconcileEngine(), 10, 1,
			StockRow{ProductReference: "REF-10", SiteName: "central", QuantityNew: 4})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, outcome)
	require.Len(t, ledger.movements, 1)
	require.Equal(t, 4, ledger.stocks[[2]int64{10, 1}].QuantityNew)
}

func TestReconcileStockAlreadyAtTarget(t *testing.T) {
	ledger := newFakeLedger()
	ledger.sites[1] = inventory.SiteRef{ID: 1, Name: "central", Type: inventory.SiteTypeStorage, IsActive: true}
	ledger.stocks[[2]int64{10, 1}] = inventory.Stock{ProductID: 10, SiteID: 1, QuantityNew: 5, QuantityUsed: 2}

	var outcome Outcome
	err := ledger.withTx(func(tx inventory.TxRepository) error {
		var err error
		outcome, err = reconcileStock(context.Background(), tx, reconcileEngine(), 10, 1,
			StockRow{ProductReference: "REF-10", SiteName: "central", QuantityNew: 5, QuantityUsed: 2})
		return err
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeNone, outcome)
	require.Empty(t, ledger.movements)
}

// A row needing two legs must reconcile all-or-nothing: when the second
// leg fails, the transaction discards the first one too.
func TestReconcileStockFailingLegAbortsBoth(t *testing.T) {
	ledger := newFakeLedger()
	ledger.sites[1] = inventory.SiteRef{ID: 1, Name: "central", Type: inventory.SiteTypeStorage, IsActive: true}
	ledger.stocks[[2]int64{10, 1}] = inventory.Stock{ProductID: 10, SiteID: 1, QuantityNew: 5, QuantityUsed: 2}
	ledger.failInsertAt = 2

	err := ledger.withTx(func(tx inventory.TxRepository) error {
		_, err := reconcileStock(context.Background(), tx, reconcileEngine(), 10, 1,
			StockRow{ProductReference: "REF-10", SiteName: "central", QuantityNew: 8, QuantityUsed: 1})
		return err
	})
	require.Error(t, err)

	stock := ledger.stocks[[2]int64{10, 1}]
	require.Equal(t, 5, stock.QuantityNew)
	require.Equal(t, 2, stock.QuantityUsed)
	require.Empty(t, ledger.movements)
}
