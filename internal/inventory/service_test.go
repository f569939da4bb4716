package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	sites     map[int64]SiteRef
	stocks    map[[2]int64]Stock
	movements []Movement
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sites:  map[int64]SiteRef{},
		stocks: map[[2]int64]Stock{},
		nextID: 1,
	}
}

func (f *fakeRepo) addSite(id int64, siteType string, active bool) {
	f.sites[id] = SiteRef{ID: id, Name: "site", Type: siteType, IsActive: active}
}

func (f *fakeRepo) seedStock(productID, siteID int64, qtyNew, qtyUsed int) {
	f.stocks[[2]int64{productID, siteID}] = Stock{
		ProductID: productID, SiteID: siteID,
		QuantityNew: qtyNew, QuantityUsed: qtyUsed,
	}
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := make(map[[2]int64]Stock, len(f.stocks))
	for k, v := range f.stocks {
		snapshot[k] = v
	}
	before := len(f.movements)
	if err := fn(ctx, f); err != nil {
		f.stocks = snapshot
		f.movements = f.movements[:before]
		return err
	}
	return nil
}

func (f *fakeRepo) GetSite(_ context.Context, id int64) (SiteRef, error) {
	site, ok := f.sites[id]
	if !ok {
		return SiteRef{}, ErrSiteNotFound
	}
	return site, nil
}

func (f *fakeRepo) GetStockForUpdate(_ context.Context, productID, siteID int64) (Stock, error) {
	stock, ok := f.stocks[[2]int64{productID, siteID}]
	if !ok {
		return Stock{ProductID: productID, SiteID: siteID}, ErrStockNotFound
	}
	return stock, nil
}

func (f *fakeRepo) UpsertStock(_ context.Context, stock Stock) error {
	f.stocks[[2]int64{stock.ProductID, stock.SiteID}] = stock
	return nil
}

func (f *fakeRepo) InsertMovement(_ context.Context, m Movement) (int64, error) {
	id := f.nextID
	f.nextID++
	m.ID = id
	f.movements = append(f.movements, m)
	return id, nil
}

func (f *fakeRepo) ListMovements(_ context.Context, _ MovementFilter) ([]Movement, int, error) {
	return f.movements, len(f.movements), nil
}

func (f *fakeRepo) GetMovement(_ context.Context, id int64) (Movement, error) {
	for _, m := range f.movements {
		if m.ID == id {
			return m, nil
		}
	}
	return Movement{}, ErrMovementNotFound
}

func (f *fakeRepo) AvailableStock(_ context.Context, productID, siteID int64) ([]SiteStock, error) {
	rows := []SiteStock{}
	for key, stock := range f.stocks {
		if key[0] != productID {
			continue
		}
		if siteID != 0 && key[1] != siteID {
			continue
		}
		rows = append(rows, SiteStock{SiteID: key[1], QuantityNew: stock.QuantityNew, QuantityUsed: stock.QuantityUsed})
	}
	return rows, nil
}

func ptr(v int64) *int64 { return &v }

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, nil, ServiceConfig{})
}

func TestCreateMovementIn(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	svc := newTestService(repo)

	m, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1),
		Quantity: 5, Condition: ConditionNew,
	})
	require.NoError(t, err)
	require.NotZero(t, m.ID)
	require.NotEmpty(t, m.Ref)
	require.Equal(t, 5, repo.stocks[[2]int64{10, 1}].QuantityNew)
	require.Equal(t, 0, repo.stocks[[2]int64{10, 1}].QuantityUsed)
}

func TestCreateMovementOutInsufficient(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	repo.seedStock(10, 1, 3, 0)
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementOut, SourceSiteID: ptr(1),
		Quantity: 4, Condition: ConditionNew,
	})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 3, insufficient.Available)
	require.Equal(t, 4, insufficient.Requested)
	// Rejected in full: ledger untouched, no movement recorded.
	require.Equal(t, 3, repo.stocks[[2]int64{10, 1}].QuantityNew)
	require.Empty(t, repo.movements)
}

func TestCreateMovementOutFromMissingStockRow(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementOut, SourceSiteID: ptr(1),
		Quantity: 1, Condition: ConditionNew,
	})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Zero(t, insufficient.Available)
}

func TestCreateMovementTransferConservesQuantity(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	repo.addSite(2, SiteTypeStorage, true)
	repo.seedStock(10, 1, 8, 2)
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementTransfer,
		SourceSiteID: ptr(1), TargetSiteID: ptr(2),
		Quantity: 5, Condition: ConditionNew,
	})
	require.NoError(t, err)
	require.Equal(t, 3, repo.stocks[[2]int64{10, 1}].QuantityNew)
	require.Equal(t, 5, repo.stocks[[2]int64{10, 2}].QuantityNew)
	// Used quantity is a separate bucket.
	require.Equal(t, 2, repo.stocks[[2]int64{10, 1}].QuantityUsed)

	total := repo.stocks[[2]int64{10, 1}].QuantityNew + repo.stocks[[2]int64{10, 2}].QuantityNew
	require.Equal(t, 8, total)
}

func TestCreateMovementTransferInsufficientRollsBack(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	repo.addSite(2, SiteTypeStorage, true)
	repo.seedStock(10, 1, 2, 0)
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementTransfer,
		SourceSiteID: ptr(1), TargetSiteID: ptr(2),
		Quantity: 5, Condition: ConditionNew,
	})
	require.Error(t, err)
	require.Equal(t, 2, repo.stocks[[2]int64{10, 1}].QuantityNew)
	_, ok := repo.stocks[[2]int64{10, 2}]
	require.False(t, ok)
	require.Empty(t, repo.movements)
}

func TestCreateMovementValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	repo.addSite(2, SiteTypeStorage, true)
	svc := newTestService(repo)

	cases := []struct {
		name  string
		input MovementInput
		want  error
	}{
		{"zero quantity", MovementInput{ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1), Quantity: 0, Condition: ConditionNew}, ErrInvalidQuantity},
		{"negative quantity", MovementInput{ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1), Quantity: -2, Condition: ConditionNew}, ErrInvalidQuantity},
		{"bad condition", MovementInput{ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1), Quantity: 1, Condition: "REFURBISHED"}, ErrInvalidCondition},
		{"in without target", MovementInput{ProductID: 10, Type: MovementIn, Quantity: 1, Condition: ConditionNew}, ErrTargetRequired},
		{"out without source", MovementInput{ProductID: 10, Type: MovementOut, Quantity: 1, Condition: ConditionNew}, ErrSourceRequired},
		{"transfer without target", MovementInput{ProductID: 10, Type: MovementTransfer, SourceSiteID: ptr(1), Quantity: 1, Condition: ConditionNew}, ErrTargetRequired},
		{"transfer same site", MovementInput{ProductID: 10, Type: MovementTransfer, SourceSiteID: ptr(1), TargetSiteID: ptr(1), Quantity: 1, Condition: ConditionNew}, ErrSameSite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateMovement(context.Background(), tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateMovementRejectsNonStorageSite(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, "CLIENT", true)
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1),
		Quantity: 1, Condition: ConditionNew,
	})
	require.ErrorIs(t, err, ErrSiteNotStorage)
}

func TestCreateMovementRejectsInactiveSite(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, false)
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1),
		Quantity: 1, Condition: ConditionNew,
	})
	require.ErrorIs(t, err, ErrSiteNotStorage)
}

func TestCreateMovementUnknownSite(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementIn, TargetSiteID: ptr(99),
		Quantity: 1, Condition: ConditionNew,
	})
	require.ErrorIs(t, err, ErrSiteNotFound)
}

func TestCreateMovementAllowNegative(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	svc := NewService(repo, nil, nil, ServiceConfig{AllowNegativeStock: true})

	_, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementOut, SourceSiteID: ptr(1),
		Quantity: 3, Condition: ConditionUsed,
	})
	require.NoError(t, err)
	require.Equal(t, -3, repo.stocks[[2]int64{10, 1}].QuantityUsed)
}

func TestCreateMovementKeepsProvidedRef(t *testing.T) {
	repo := newFakeRepo()
	repo.addSite(1, SiteTypeStorage, true)
	svc := newTestService(repo)

	m, err := svc.CreateMovement(context.Background(), MovementInput{
		ProductID: 10, Type: MovementIn, TargetSiteID: ptr(1),
		Quantity: 1, Condition: ConditionNew, Ref: "RCP-2026-001",
	})
	require.NoError(t, err)
	require.Equal(t, "RCP-2026-001", m.Ref)
}

func TestAvailableStockRequiresProduct(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.AvailableStock(context.Background(), 0, 0, "")
	require.Error(t, err)
}

func TestAvailableStockFiltersCondition(t *testing.T) {
	repo := newFakeRepo()
	repo.seedStock(10, 1, 4, 7)
	svc := newTestService(repo)

	rows, err := svc.AvailableStock(context.Background(), 10, 1, ConditionUsed)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0, rows[0].QuantityNew)
	require.Equal(t, 7, rows[0].QuantityUsed)
}

func TestGetMovementNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.GetMovement(context.Background(), 42)
	require.True(t, errors.Is(err, ErrMovementNotFound))
}
