package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	entries   []Entry
	gotLimit  int
	gotOffset int
}

func (f *fakeLister) List(_ context.Context, _ Filters, limit, offset int) ([]Entry, error) {
	f.gotLimit = limit
	f.gotOffset = offset
	if offset >= len(f.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	return f.entries[offset:end], nil
}

func makeEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			ID:         int64(i + 1),
			Actor:      "ops",
			Action:     "movement:create",
			Entity:     "movement",
			EntityID:   "1",
			OccurredAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
		}
	}
	return entries
}

func TestTimelineDetectsNextPage(t *testing.T) {
	repo := &fakeLister{entries: makeEntries(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	require.Equal(t, 21, repo.gotLimit)
}

func TestTimelineLastPage(t *testing.T) {
	repo := &fakeLister{entries: makeEntries(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 20, repo.gotOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &fakeLister{entries: makeEntries(100)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), Filters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, result.Paging.PageSize)
	require.Len(t, result.Rows, maxPageSize)
}

func TestExportReturnsAllRows(t *testing.T) {
	repo := &fakeLister{entries: makeEntries(30)}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, rows, 30)
	require.Equal(t, exportCap, repo.gotLimit)
}
