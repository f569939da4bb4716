package sites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/manoam/stocks-backend/internal/masterdata/shared"
	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

type fakeRepo struct {
	sites  map[int64]Site
	refs   map[int64]int
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sites: map[int64]Site{}, refs: map[int64]int{}, nextID: 1}
}

func (f *fakeRepo) List(_ context.Context, _ shared.ListFilters) ([]Site, int, error) {
	out := []Site{}
	for _, s := range f.sites {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Site, error) {
	s, ok := f.sites[id]
	if !ok {
		return Site{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeRepo) Create(_ context.Context, site Site) (Site, error) {
	for _, existing := range f.sites {
		if existing.Name == site.Name && existing.Type == site.Type {
			return Site{}, ErrDuplicateName
		}
	}
	site.ID = f.nextID
	f.nextID++
	f.sites[site.ID] = site
	return site, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, site Site) error {
	if _, ok := f.sites[id]; !ok {
		return ErrNotFound
	}
	site.ID = id
	f.sites[id] = site
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.sites[id]; !ok {
		return ErrNotFound
	}
	delete(f.sites, id)
	return nil
}

func (f *fakeRepo) CountReferences(_ context.Context, id int64) (int, error) {
	return f.refs[id], nil
}

func TestCreateSite(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	site, err := svc.Create(context.Background(), Site{Name: "Main depot", Type: TypeStorage, IsActive: true})
	require.NoError(t, err)
	require.NotZero(t, site.ID)
}

func TestCreateSiteValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Create(context.Background(), Site{Name: "   ", Type: TypeStorage})
	require.ErrorIs(t, err, internalshared.ErrValidation)

	_, err = svc.Create(context.Background(), Site{Name: "Depot", Type: "WAREHOUSE"})
	require.ErrorIs(t, err, internalshared.ErrValidation)
}

func TestCreateSiteDuplicateName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), Site{Name: "Depot", Type: TypeStorage, IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Site{Name: "Depot", Type: TypeStorage, IsActive: true})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestDeleteSiteBlockedWhenReferenced(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	site, err := svc.Create(context.Background(), Site{Name: "Depot", Type: TypeStorage, IsActive: true})
	require.NoError(t, err)
	repo.refs[site.ID] = 3

	err = svc.Delete(context.Background(), site.ID)
	require.ErrorIs(t, err, ErrSiteInUse)
	_, err = svc.Get(context.Background(), site.ID)
	require.NoError(t, err)
}

func TestDeleteSiteUnreferenced(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	site, err := svc.Create(context.Background(), Site{Name: "Depot", Type: TypeExit, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), site.ID))
	_, err = svc.Get(context.Background(), site.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetSiteInvalidID(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, ErrNotFound)
}
