package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/artha-erp/artha-erp/internal/procurement"
)

type fakeRepo struct {
	nextID      int64
	allocations []POExpenseAllocation
	poIDs       map[int64]bool
	expenseIDs  map[int64]bool
	voidExpense map[int64]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{poIDs: map[int64]bool{}, expenseIDs: map[int64]bool{}, voidExpense: map[int64]bool{}}
}

func (f *fakeRepo) InsertAllocation(_ context.Context, a POExpenseAllocation) (POExpenseAllocation, error) {
	if !f.poIDs[a.POID] || !f.expenseIDs[a.ExpenseID] {
		return POExpenseAllocation{}, ErrNotFound
	}
	f.nextID++
	a.ID = f.nextID
	f.allocations = append(f.allocations, a)
	return a, nil
}

func (f *fakeRepo) ListAllocationsForPO(_ context.Context, poID int64) ([]POExpenseAllocation, error) {
	var out []POExpenseAllocation
	for _, a := range f.allocations {
		if a.POID == poID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) SumPaidForPO(_ context.Context, poID int64) (float64, error) {
	var sum float64
	for _, a := range f.allocations {
		if a.POID == poID && !f.voidExpense[a.ExpenseID] {
			sum += a.Amount
		}
	}
	return sum, nil
}

func (f *fakeRepo) OpenPOIDs(context.Context) ([]int64, error) {
	var ids []int64
	for id := range f.poIDs {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakePOReader struct {
	pos   map[int64]procurement.PurchaseOrder
	items map[int64][]procurement.POItem
}

func (f *fakePOReader) GetPurchaseOrder(_ context.Context, id int64) (procurement.PurchaseOrder, []procurement.POItem, error) {
	po, ok := f.pos[id]
	if !ok {
		return procurement.PurchaseOrder{}, nil, procurement.ErrNotFound
	}
	return po, f.items[id], nil
}

func newFixture() (*fakeRepo, *fakePOReader, *Service) {
	repo := newFakeRepo()
	pos := &fakePOReader{pos: map[int64]procurement.PurchaseOrder{}, items: map[int64][]procurement.POItem{}}
	svc := NewService(repo, pos, nil)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC) }
	return repo, pos, svc
}

func addPO(repo *fakeRepo, pos *fakePOReader, id int64, po procurement.PurchaseOrder, items []procurement.POItem) {
	po.ID = id
	repo.poIDs[id] = true
	pos.pos[id] = po
	pos.items[id] = items
}

func TestAllocateExpenseToPO(t *testing.T) {
	repo, pos, svc := newFixture()
	addPO(repo, pos, 1, procurement.PurchaseOrder{IsTaxIncluded: true}, []procurement.POItem{{Qty: 1, UnitPrice: 1000}})
	repo.expenseIDs[10] = true

	_, err := svc.AllocateExpenseToPO(context.Background(), 10, 1, 0, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.AllocateExpenseToPO(context.Background(), 99, 1, 100, "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AllocateExpenseToPO(context.Background(), 10, 99, 100, "")
	require.ErrorIs(t, err, ErrNotFound)

	a, err := svc.AllocateExpenseToPO(context.Background(), 10, 1, 400, "first instalment")
	require.NoError(t, err)
	require.Equal(t, int64(1), a.ID)
}

func TestPaymentSummaryScenario(t *testing.T) {
	repo, pos, svc := newFixture()
	addPO(repo, pos, 1, procurement.PurchaseOrder{IsTaxIncluded: true}, []procurement.POItem{{Qty: 1, UnitPrice: 1000}})
	repo.expenseIDs[10] = true
	repo.expenseIDs[11] = true

	// Two payments of 300 and 400 against a 1000 total.
	_, err := svc.AllocateExpenseToPO(context.Background(), 10, 1, 300, "")
	require.NoError(t, err)
	_, err = svc.AllocateExpenseToPO(context.Background(), 11, 1, 400, "")
	require.NoError(t, err)

	b, err := svc.POPaymentSummary(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 700, b.Paid, 0.001)
	require.InDelta(t, 300, b.Remaining, 0.001)
	require.Equal(t, StatusPartial, b.Status)

	// Voiding one expense drops it from the paid total.
	repo.voidExpense[11] = true
	b, err = svc.POPaymentSummary(context.Background(), 1)
	require.NoError(t, err)
	require.InDelta(t, 300, b.Paid, 0.001)
	require.InDelta(t, 700, b.Remaining, 0.001)
}

func TestPaymentSummaryPaid(t *testing.T) {
	repo, pos, svc := newFixture()
	addPO(repo, pos, 1, procurement.PurchaseOrder{IsTaxIncluded: true}, []procurement.POItem{{Qty: 1, UnitPrice: 1000}})
	repo.expenseIDs[10] = true

	_, err := svc.AllocateExpenseToPO(context.Background(), 10, 1, 1000, "")
	require.NoError(t, err)

	b, err := svc.POPaymentSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, b.Status)
	require.InDelta(t, 0, b.Remaining, 0.001)
}

func TestAging(t *testing.T) {
	repo, pos, svc := newFixture()
	poDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	// Due 2026-07-31: 32 days past as of 2026-09-01, lands in the 60 bucket.
	addPO(repo, pos, 1, procurement.PurchaseOrder{
		IsTaxIncluded: true, PODate: poDate,
		PaymentTerm: procurement.TermNet, TermDays: 30,
	}, []procurement.POItem{{Qty: 1, UnitPrice: 500}})

	// Due in the future: current.
	addPO(repo, pos, 2, procurement.PurchaseOrder{
		IsTaxIncluded: true, PODate: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		PaymentTerm: procurement.TermNet, TermDays: 30,
	}, []procurement.POItem{{Qty: 1, UnitPrice: 200}})

	// Fully paid: excluded.
	addPO(repo, pos, 3, procurement.PurchaseOrder{
		IsTaxIncluded: true, PODate: poDate, PaymentTerm: procurement.TermCOD,
	}, []procurement.POItem{{Qty: 1, UnitPrice: 100}})
	repo.expenseIDs[10] = true
	_, err := svc.AllocateExpenseToPO(context.Background(), 10, 3, 100, "")
	require.NoError(t, err)

	buckets, err := svc.Aging(context.Background(), time.Time{})
	require.NoError(t, err)
	require.InDelta(t, 200, buckets.Current, 0.001)
	require.InDelta(t, 500, buckets.Bucket60, 0.001)
	require.InDelta(t, 0, buckets.Bucket30+buckets.Bucket90+buckets.Bucket120, 0.001)
}
