package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	nextID int64
	items  map[int64]Expense
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: map[int64]Expense{}}
}

func (f *fakeRepo) List(_ context.Context, filters Filters) ([]Expense, int, error) {
	var out []Expense
	for _, e := range f.items {
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		if filters.Source != "" && e.Source != filters.Source {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Expense, error) {
	e, ok := f.items[id]
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

func (f *fakeRepo) Create(_ context.Context, e Expense) (Expense, error) {
	f.nextID++
	e.ID = f.nextID
	f.items[e.ID] = e
	return e, nil
}

func (f *fakeRepo) Update(_ context.Context, id int64, e Expense) error {
	cur, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	e.ID = id
	e.Status = cur.Status
	f.items[id] = e
	return nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id int64, status Status, voidReason string, voidedAt *time.Time) error {
	e, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.VoidReason = voidReason
	e.VoidedAt = voidedAt
	f.items[id] = e
	return nil
}

func ptr(v int64) *int64 { return &v }

func TestCreateValidatesFundingSource(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)
	ctx := context.Background()

	// No funding reference at all.
	_, err := svc.Create(ctx, Expense{Source: SourceRAB, Amount: 100})
	require.ErrorIs(t, err, ErrInvalidSource)

	// Wrong reference for the source.
	_, err = svc.Create(ctx, Expense{Source: SourceRAB, AccountID: ptr(3), Amount: 100})
	require.ErrorIs(t, err, ErrInvalidSource)

	// Two references at once.
	_, err = svc.Create(ctx, Expense{Source: SourcePTBank, AccountID: ptr(3), CashboxID: ptr(1), Amount: 100})
	require.ErrorIs(t, err, ErrInvalidSource)

	_, err = svc.Create(ctx, Expense{Source: SourcePetty, CashboxID: ptr(1), Amount: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)

	e, err := svc.Create(ctx, Expense{Source: SourceRAB, ShareholderID: ptr(5), Amount: 100})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, e.Status)
	require.False(t, e.SpentAt.IsZero())
}

func TestPostLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	e, err := svc.Create(ctx, Expense{Source: SourcePTBank, AccountID: ptr(2), Amount: 500})
	require.NoError(t, err)

	require.NoError(t, svc.Post(ctx, e.ID))
	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, got.Status)

	// Posting twice and editing a posted expense are both rejected.
	require.ErrorIs(t, svc.Post(ctx, e.ID), ErrInvalidState)
	err = svc.Update(ctx, e.ID, Expense{Source: SourcePTBank, AccountID: ptr(2), Amount: 600})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestVoidKeepsRow(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	e, err := svc.Create(ctx, Expense{Source: SourcePetty, CashboxID: ptr(1), Amount: 50})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, e.ID))

	require.ErrorIs(t, svc.Void(ctx, e.ID, "  "), ErrReasonRequired)
	require.NoError(t, svc.Void(ctx, e.ID, "duplicate entry"))

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, got.Status)
	require.Equal(t, "duplicate entry", got.VoidReason)
	require.NotNil(t, got.VoidedAt)

	// Voiding twice is rejected; the row is never deleted.
	require.ErrorIs(t, svc.Void(ctx, e.ID, "again"), ErrInvalidState)
	require.Len(t, repo.items, 1)
}

func TestVoidExcludedFromListings(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, Expense{Source: SourceRAB, ShareholderID: ptr(1), Amount: 100})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, a.ID))

	b, err := svc.Create(ctx, Expense{Source: SourceRAB, ShareholderID: ptr(1), Amount: 200})
	require.NoError(t, err)
	require.NoError(t, svc.Post(ctx, b.ID))
	require.NoError(t, svc.Void(ctx, b.ID, "entered twice"))

	posted, total, err := svc.List(ctx, Filters{Status: StatusPosted})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, posted, 1)
	require.Equal(t, a.ID, posted[0].ID)
}
