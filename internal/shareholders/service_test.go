package shareholders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

type fakeRepo struct {
	nextID int64
	items  map[int64]Shareholder
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, items: map[int64]Shareholder{}}
}

func (f *fakeRepo) List(_ context.Context, activeOnly bool) ([]Shareholder, error) {
	var out []Shareholder
	for _, sh := range f.items {
		if activeOnly && !sh.IsActive {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Shareholder, error) {
	sh, ok := f.items[id]
	if !ok {
		return Shareholder{}, internalshared.ErrNotFound
	}
	return sh, nil
}

func (f *fakeRepo) Create(_ context.Context, sh Shareholder) (Shareholder, error) {
	sh.ID = f.nextID
	f.nextID++
	f.items[sh.ID] = sh
	return sh, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, sh Shareholder) error {
	if _, ok := f.items[id]; !ok {
		return internalshared.ErrNotFound
	}
	sh.ID = id
	f.items[id] = sh
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return internalshared.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func TestCreateValidatesPercent(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), Shareholder{Name: "Andi", OwnershipPercent: 120})
	require.ErrorIs(t, err, ErrInvalidPercent)

	_, err = svc.Create(context.Background(), Shareholder{Name: "Andi", OwnershipPercent: -1})
	require.ErrorIs(t, err, ErrInvalidPercent)

	_, err = svc.Create(context.Background(), Shareholder{OwnershipPercent: 40})
	require.ErrorIs(t, err, ErrNameRequired)

	sh, err := svc.Create(context.Background(), Shareholder{Name: "Andi", OwnershipPercent: 40, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), sh.ID)
}

func TestListReportsGapTo100(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), Shareholder{Name: "Andi", OwnershipPercent: 60, IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Shareholder{Name: "Budi", OwnershipPercent: 30, IsActive: true})
	require.NoError(t, err)
	// Inactive ownership does not count toward the gap.
	_, err = svc.Create(context.Background(), Shareholder{Name: "Citra", OwnershipPercent: 10, IsActive: false})
	require.NoError(t, err)

	summary, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, summary.Items, 3)
	require.InDelta(t, 10, summary.GapTo100, 0.001)
}

func TestGapCanBeNegative(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), Shareholder{Name: "Andi", OwnershipPercent: 70, IsActive: true})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), Shareholder{Name: "Budi", OwnershipPercent: 50, IsActive: true})
	require.NoError(t, err)

	summary, err := svc.List(context.Background(), false)
	require.NoError(t, err)
	require.InDelta(t, -20, summary.GapTo100, 0.001)
}

func TestUpdateMissingShareholder(t *testing.T) {
	svc := NewService(newFakeRepo())
	err := svc.Update(context.Background(), 99, Shareholder{Name: "Andi", OwnershipPercent: 10})
	require.ErrorIs(t, err, internalshared.ErrNotFound)
}
