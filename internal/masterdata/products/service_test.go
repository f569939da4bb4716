package products

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

type fakeRepo struct {
	products map[int64]Product
	links    map[int64][]ProductSupplier
	refs     map[int64]int
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[int64]Product{}, links: map[int64][]ProductSupplier{}, refs: map[int64]int{}, nextID: 1}
}

func (f *fakeRepo) List(_ context.Context, _ shared.ListFilters) ([]Product, int, error) {
	out := []Product{}
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Suppliers = f.links[id]
	return p, nil
}

func (f *fakeRepo) GetByReference(_ context.Context, reference string) (Product, error) {
	for _, p := range f.products {
		if p.Reference == reference {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (f *fakeRepo) Create(_ context.Context, p Product) (Product, error) {
	for _, existing := range f.products {
		if existing.Reference == p.Reference {
			return Product{}, ErrDuplicateReference
		}
	}
	p.ID = f.nextID
	f.nextID++
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, p Product) error {
	existing, ok := f.products[id]
	if !ok {
		return ErrNotFound
	}
	p.ID = id
	p.Reference = existing.Reference
	f.products[id] = p
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return ErrNotFound
	}
	delete(f.products, id)
	delete(f.links, id)
	return nil
}

func (f *fakeRepo) CountReferences(_ context.Context, id int64) (int, error) {
	return f.refs[id], nil
}

func (f *fakeRepo) ListLinks(_ context.Context, productID int64) ([]ProductSupplier, error) {
	return f.links[productID], nil
}

func (f *fakeRepo) GetLink(_ context.Context, productID, supplierID int64) (ProductSupplier, error) {
	for _, l := range f.links[productID] {
		if l.SupplierID == supplierID {
			return l, nil
		}
	}
	return ProductSupplier{}, ErrLinkNotFound
}

func (f *fakeRepo) CreateLink(_ context.Context, link ProductSupplier) (ProductSupplier, error) {
	for _, l := range f.links[link.ProductID] {
		if l.SupplierID == link.SupplierID {
			return ProductSupplier{}, ErrLinkExists
		}
	}
	link.ID = f.nextID
	f.nextID++
	if link.UnitPrice != nil {
		now := time.Now()
		link.PriceUpdatedAt = &now
	}
	f.links[link.ProductID] = append(f.links[link.ProductID], link)
	return link, nil
}

func (f *fakeRepo) UpdateLink(_ context.Context, productID, supplierID int64, input LinkInput, priceChanged bool) error {
	for i, l := range f.links[productID] {
		if l.SupplierID != supplierID {
			continue
		}
		l.SupplierRef = input.SupplierRef
		l.UnitPrice = input.UnitPrice
		l.LeadTime = input.LeadTime
		l.ProductURL = input.ProductURL
		l.ShippingCost = input.ShippingCost
		if priceChanged {
			now := time.Now()
			l.PriceUpdatedAt = &now
		}
		f.links[productID][i] = l
		return nil
	}
	return ErrLinkNotFound
}

func (f *fakeRepo) DeleteLink(_ context.Context, productID, supplierID int64) error {
	links := f.links[productID]
	for i, l := range links {
		if l.SupplierID == supplierID {
			f.links[productID] = append(links[:i], links[i+1:]...)
			return nil
		}
	}
	return ErrLinkNotFound
}

func (f *fakeRepo) SetPrimary(_ context.Context, productID, supplierID int64) error {
	found := false
	for _, l := range f.links[productID] {
		if l.SupplierID == supplierID {
			found = true
		}
	}
	if !found {
		return ErrLinkNotFound
	}
	for i, l := range f.links[productID] {
		l.IsPrimary = l.SupplierID == supplierID
		f.links[productID][i] = l
	}
	return nil
}

func price(v float64) *float64 { return &v }

func TestCreateProduct(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)
	require.NotZero(t, p.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), Product{Reference: "", QtyPerUnit: 1})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{Reference: "REF", QtyPerUnit: 0})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(context.Background(), Product{Reference: "REF", QtyPerUnit: 1, SupplyRisk: "EXTREME"})
	require.ErrorIs(t, err, internalshared.ErrValidation)
}

func TestCreateProductDuplicateReference(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.ErrorIs(t, err, ErrDuplicateReference)
}

func TestUpdateProductReferenceImmutable(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), p.ID, Product{Reference: "REF-002", QtyPerUnit: 2})
	require.ErrorIs(t, err, ErrReferenceImmutable)
	require.ErrorIs(t, err, internalshared.ErrValidation)

	// Same or empty reference is fine.
	updated, err := svc.Update(context.Background(), p.ID, Product{Reference: "REF-001", QtyPerUnit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, updated.QtyPerUnit)

	updated, err = svc.Update(context.Background(), p.ID, Product{QtyPerUnit: 3})
	require.NoError(t, err)
	require.Equal(t, "REF-001", updated.Reference)
}

func TestDeleteProductBlockedWhenReferenced(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)
	repo.refs[p.ID] = 5

	require.ErrorIs(t, svc.Delete(context.Background(), p.ID), ErrProductInUse)
}

func TestSetPrimarySupplierClearsPrevious(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)

	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{IsPrimary: true})
	require.NoError(t, err)
	_, err = svc.LinkSupplier(context.Background(), p.ID, 200, LinkInput{})
	require.NoError(t, err)

	link, err := svc.SetPrimarySupplier(context.Background(), p.ID, 200)
	require.NoError(t, err)
	require.True(t, link.IsPrimary)

	primaries := 0
	for _, l := range repo.links[p.ID] {
		if l.IsPrimary {
			primaries++
			require.Equal(t, int64(200), l.SupplierID)
		}
	}
	require.Equal(t, 1, primaries)
}

func TestLinkSupplierPrimaryClearsPrevious(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)

	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{IsPrimary: true})
	require.NoError(t, err)
	link, err := svc.LinkSupplier(context.Background(), p.ID, 200, LinkInput{IsPrimary: true})
	require.NoError(t, err)
	require.True(t, link.IsPrimary)

	primaries := 0
	for _, l := range repo.links[p.ID] {
		if l.IsPrimary {
			primaries++
			require.Equal(t, int64(200), l.SupplierID)
		}
	}
	require.Equal(t, 1, primaries)
}

type failingPrimaryRepo struct {
	*fakeRepo
	fail bool
}

func (f *failingPrimaryRepo) SetPrimary(ctx context.Context, productID, supplierID int64) error {
	if f.fail {
		return errors.New("primary flip unavailable")
	}
	return f.fakeRepo.SetPrimary(ctx, productID, supplierID)
}

func TestLinkSupplierPrimaryFlipFailureKeepsSinglePrimary(t *testing.T) {
	repo := &failingPrimaryRepo{fakeRepo: newFakeRepo()}
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)
	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{IsPrimary: true})
	require.NoError(t, err)

	repo.fail = true
	_, err = svc.LinkSupplier(context.Background(), p.ID, 200, LinkInput{IsPrimary: true})
	require.Error(t, err)

	primaries := 0
	for _, l := range repo.links[p.ID] {
		if l.IsPrimary {
			primaries++
			require.Equal(t, int64(100), l.SupplierID)
		}
	}
	require.Equal(t, 1, primaries)
}

func TestLinkSupplierDuplicate(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)

	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{})
	require.NoError(t, err)
	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{})
	require.ErrorIs(t, err, ErrLinkExists)
}

func TestLinkSupplierNegativePrice(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)

	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{UnitPrice: price(-4)})
	require.ErrorIs(t, err, internalshared.ErrValidation)
}

func TestUpdateLinkBumpsPriceUpdatedAtOnPriceChange(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)

	created, err := svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{UnitPrice: price(10)})
	require.NoError(t, err)
	require.NotNil(t, created.PriceUpdatedAt)
	firstStamp := *created.PriceUpdatedAt

	// Unchanged price keeps the stamp.
	updated, err := svc.UpdateLink(context.Background(), p.ID, 100, LinkInput{UnitPrice: price(10)})
	require.NoError(t, err)
	require.Equal(t, firstStamp, *updated.PriceUpdatedAt)

	time.Sleep(time.Millisecond)
	updated, err = svc.UpdateLink(context.Background(), p.ID, 100, LinkInput{UnitPrice: price(12)})
	require.NoError(t, err)
	require.True(t, updated.PriceUpdatedAt.After(firstStamp))
}

func TestUnlinkSupplier(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	p, err := svc.Create(context.Background(), Product{Reference: "REF-001", QtyPerUnit: 1})
	require.NoError(t, err)
	_, err = svc.LinkSupplier(context.Background(), p.ID, 100, LinkInput{})
	require.NoError(t, err)

	require.NoError(t, svc.UnlinkSupplier(context.Background(), p.ID, 100))
	require.ErrorIs(t, svc.UnlinkSupplier(context.Background(), p.ID, 100), ErrLinkNotFound)
}
