package taxonomy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	internalshared "github.com/manoam/stocks-backend/internal/shared"
)

type fakeRepo struct {
	groups     map[int64]ProductGroup
	assemblies map[int64]Assembly
	types      map[int64]AssemblyType
	nextID     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		groups:     map[int64]ProductGroup{},
		assemblies: map[int64]Assembly{},
		types:      map[int64]AssemblyType{},
		nextID:     1,
	}
}

func (f *fakeRepo) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeRepo) ListGroups(_ context.Context) ([]ProductGroup, error) {
	out := []ProductGroup{}
	for _, g := range f.groups {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeRepo) CreateGroup(_ context.Context, g ProductGroup) (ProductGroup, error) {
	for _, existing := range f.groups {
		if existing.Name == g.Name {
			return ProductGroup{}, ErrDuplicateName
		}
	}
	g.ID = f.id()
	f.groups[g.ID] = g
	return g, nil
}

func (f *fakeRepo) UpdateGroup(_ context.Context, id int64, g ProductGroup) error {
	if _, ok := f.groups[id]; !ok {
		return ErrNotFound
	}
	g.ID = id
	f.groups[id] = g
	return nil
}

func (f *fakeRepo) DeleteGroup(_ context.Context, id int64) error {
	if _, ok := f.groups[id]; !ok {
		return ErrNotFound
	}
	delete(f.groups, id)
	return nil
}

func (f *fakeRepo) ListAssemblies(_ context.Context) ([]Assembly, error) {
	out := []Assembly{}
	for _, a := range f.assemblies {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) CreateAssembly(_ context.Context, a Assembly, typeIDs []int64) (Assembly, error) {
	a.ID = f.id()
	for _, typeID := range typeIDs {
		if t, ok := f.types[typeID]; ok {
			a.Types = append(a.Types, t)
		}
	}
	f.assemblies[a.ID] = a
	return a, nil
}

func (f *fakeRepo) UpdateAssembly(_ context.Context, id int64, a Assembly, typeIDs []int64) error {
	if _, ok := f.assemblies[id]; !ok {
		return ErrNotFound
	}
	a.ID = id
	a.Types = nil
	for _, typeID := range typeIDs {
		if t, ok := f.types[typeID]; ok {
			a.Types = append(a.Types, t)
		}
	}
	f.assemblies[id] = a
	return nil
}

func (f *fakeRepo) DeleteAssembly(_ context.Context, id int64) error {
	if _, ok := f.assemblies[id]; !ok {
		return ErrNotFound
	}
	delete(f.assemblies, id)
	return nil
}

func (f *fakeRepo) ListAssemblyTypes(_ context.Context) ([]AssemblyType, error) {
	out := []AssemblyType{}
	for _, t := range f.types {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) CreateAssemblyType(_ context.Context, t AssemblyType) (AssemblyType, error) {
	t.ID = f.id()
	f.types[t.ID] = t
	return t, nil
}

func (f *fakeRepo) DeleteAssemblyType(_ context.Context, id int64) error {
	if _, ok := f.types[id]; !ok {
		return ErrNotFound
	}
	delete(f.types, id)
	return nil
}

func TestCreateGroup(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	group, err := svc.CreateGroup(context.Background(), ProductGroup{Name: "Fasteners"})
	require.NoError(t, err)
	require.NotZero(t, group.ID)
}

func TestCreateGroupRequiresName(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.CreateGroup(context.Background(), ProductGroup{Name: "  "})
	require.ErrorIs(t, err, internalshared.ErrValidation)
}

func TestCreateGroupDuplicate(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	_, err := svc.CreateGroup(context.Background(), ProductGroup{Name: "Fasteners"})
	require.NoError(t, err)
	_, err = svc.CreateGroup(context.Background(), ProductGroup{Name: "Fasteners"})
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateAssemblyWithTypes(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	mech, err := svc.CreateAssemblyType(context.Background(), AssemblyType{Name: "Mechanical"})
	require.NoError(t, err)

	assembly, err := svc.CreateAssembly(context.Background(), Assembly{Name: "Frame"}, []int64{mech.ID})
	require.NoError(t, err)
	require.Len(t, assembly.Types, 1)
	require.Equal(t, "Mechanical", assembly.Types[0].Name)
}

func TestDeleteAssemblyNotFound(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	require.ErrorIs(t, svc.DeleteAssembly(context.Background(), 7), ErrNotFound)
}
