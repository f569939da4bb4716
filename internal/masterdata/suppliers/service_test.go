package suppliers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manoam/stocks-backend/internal/geo"
	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

type fakeRepo struct {
	suppliers map[int64]Supplier
	refs      map[int64]int
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{suppliers: map[int64]Supplier{}, refs: map[int64]int{}, nextID: 1}
}

func (f *fakeRepo) List(_ context.Context, _ shared.ListFilters) ([]Supplier, int, error) {
	out := []Supplier{}
	for _, s := range f.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return Supplier{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeRepo) Create(_ context.Context, s Supplier) (Supplier, error) {
	s.ID = f.nextID
	f.nextID++
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, s Supplier) error {
	if _, ok := f.suppliers[id]; !ok {
		return ErrNotFound
	}
	s.ID = id
	f.suppliers[id] = s
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.suppliers[id]; !ok {
		return ErrNotFound
	}
	delete(f.suppliers, id)
	return nil
}

func (f *fakeRepo) CountReferences(_ context.Context, id int64) (int, error) {
	return f.refs[id], nil
}

type fixedGeocoder struct {
	coords *geo.Coordinates
	err    error
	calls  int
}

func (g *fixedGeocoder) Locate(_ context.Context, _ string) (*geo.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

func TestCreateSupplierGeocodesMissingCoordinates(t *testing.T) {
	geocoder := &fixedGeocoder{coords: &geo.Coordinates{Latitude: 48.85, Longitude: 2.35}}
	svc := NewService(newFakeRepo(), geocoder, nil, nil)

	created, err := svc.Create(context.Background(), Supplier{
		Name: "Acme Parts", Address: "1 rue de Rivoli", City: "Paris", Country: "France",
	})
	require.NoError(t, err)
	require.Equal(t, 1, geocoder.calls)
	require.NotNil(t, created.Latitude)
	require.InDelta(t, 48.85, *created.Latitude, 0.001)
}

func TestCreateSupplierGeocodingFailureNeverBlocks(t *testing.T) {
	geocoder := &fixedGeocoder{err: errors.New("upstream down")}
	svc := NewService(newFakeRepo(), geocoder, nil, nil)

	created, err := svc.Create(context.Background(), Supplier{Name: "Acme Parts", City: "Lyon"})
	require.NoError(t, err)
	require.Nil(t, created.Latitude)
	require.Nil(t, created.Longitude)
}

func TestCreateSupplierSkipsGeocodingWhenCoordinatesProvided(t *testing.T) {
	geocoder := &fixedGeocoder{coords: &geo.Coordinates{Latitude: 1, Longitude: 1}}
	svc := NewService(newFakeRepo(), geocoder, nil, nil)

	lat, lon := 45.76, 4.83
	_, err := svc.Create(context.Background(), Supplier{
		Name: "Acme Parts", City: "Lyon", Latitude: &lat, Longitude: &lon,
	})
	require.NoError(t, err)
	require.Zero(t, geocoder.calls)
}

func TestCreateSupplierSkipsGeocodingWithoutAddress(t *testing.T) {
	geocoder := &fixedGeocoder{coords: &geo.Coordinates{Latitude: 1, Longitude: 1}}
	svc := NewService(newFakeRepo(), geocoder, nil, nil)

	_, err := svc.Create(context.Background(), Supplier{Name: "Acme Parts"})
	require.NoError(t, err)
	require.Zero(t, geocoder.calls)
}

func TestCreateSupplierValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), Supplier{Name: " "})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(context.Background(), Supplier{Name: "Acme", Email: "not-an-email"})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	lat := 48.85
	_, err = svc.Create(context.Background(), Supplier{Name: "Acme", Latitude: &lat})
	require.ErrorIs(t, err, internalshared.ErrValidation)
}

func TestDeleteSupplierBlockedWhenReferenced(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil, nil, nil)

	created, err := svc.Create(context.Background(), Supplier{Name: "Acme"})
	require.NoError(t, err)
	repo.refs[created.ID] = 2

	err = svc.Delete(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrSupplierInUse)
}

func TestFullAddress(t *testing.T) {
	s := Supplier{Address: "1 rue de Rivoli", PostalCode: "75001", City: "Paris", Country: "France"}
	require.Equal(t, "1 rue de Rivoli, 75001, Paris, France", s.FullAddress())

	require.Equal(t, "Paris", Supplier{City: " Paris "}.FullAddress())
	require.Empty(t, Supplier{}.FullAddress())
}
