package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/artha-erp/artha-erp/internal/reconcile"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

type fakeRepo struct {
	grid      []ExpenseGridCell
	accounts  []AccountFlow
	cashboxes []CashboxFlow
	holders   []ShareholderFlow
	calls     int
}

func (f *fakeRepo) MonthlyExpenseGrid(context.Context, internalshared.Month, internalshared.Month) ([]ExpenseGridCell, error) {
	f.calls++
	return append([]ExpenseGridCell(nil), f.grid...), nil
}

func (f *fakeRepo) AccountFlows(context.Context) ([]AccountFlow, error) {
	f.calls++
	return append([]AccountFlow(nil), f.accounts...), nil
}

func (f *fakeRepo) CashboxFlows(context.Context) ([]CashboxFlow, error) {
	f.calls++
	return append([]CashboxFlow(nil), f.cashboxes...), nil
}

func (f *fakeRepo) ShareholderFlows(context.Context) ([]ShareholderFlow, error) {
	f.calls++
	return append([]ShareholderFlow(nil), f.holders...), nil
}

type fakePayments struct{ balances []reconcile.POBalance }

func (f *fakePayments) OpenPOSummaries(context.Context) ([]reconcile.POBalance, error) {
	return append([]reconcile.POBalance(nil), f.balances...), nil
}

func newCachedService(t *testing.T, repo *fakeRepo) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	return NewService(repo, &fakePayments{}, cache), mr
}

func months(t *testing.T) (internalshared.Month, internalshared.Month) {
	t.Helper()
	from, err := internalshared.ParseMonth("2026-01")
	require.NoError(t, err)
	to, err := internalshared.ParseMonth("2026-03")
	require.NoError(t, err)
	return from, to
}

func TestExpenseGridDeterministic(t *testing.T) {
	repo := &fakeRepo{grid: []ExpenseGridCell{
		{Period: "2026-01", Source: "RAB", Total: 100},
		{Period: "2026-01", Source: "PT_BANK", Total: 250},
		{Period: "2026-02", Source: "PETTY", Total: 40},
	}}
	svc := NewService(repo, &fakePayments{}, nil)
	from, to := months(t)

	first, err := svc.ExpenseGrid(context.Background(), from, to)
	require.NoError(t, err)
	second, err := svc.ExpenseGrid(context.Background(), from, to)
	require.NoError(t, err)

	// Pure projection: same base rows, same output, every time.
	require.Equal(t, first, second)
	require.Len(t, first, 3)
}

func TestCacheServesSecondRead(t *testing.T) {
	repo := &fakeRepo{grid: []ExpenseGridCell{{Period: "2026-01", Source: "RAB", Total: 100}}}
	svc, _ := newCachedService(t, repo)
	from, to := months(t)

	_, err := svc.ExpenseGrid(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	cells, err := svc.ExpenseGrid(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls, "second read must come from cache")
	require.Len(t, cells, 1)
}

func TestInvalidateBumpsVersion(t *testing.T) {
	repo := &fakeRepo{grid: []ExpenseGridCell{{Period: "2026-01", Source: "RAB", Total: 100}}}
	svc, _ := newCachedService(t, repo)
	from, to := months(t)

	_, err := svc.ExpenseGrid(context.Background(), from, to)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))

	// The changed base data shows up after the bump; a stale cache never
	// becomes a source of truth.
	repo.grid[0].Total = 175
	cells, err := svc.ExpenseGrid(context.Background(), from, to)
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
	require.InDelta(t, 175, cells[0].Total, 0.001)
}

func TestBalancesDeriveFromFlows(t *testing.T) {
	repo := &fakeRepo{
		accounts:  []AccountFlow{{AccountID: 1, In: 1_000_000, Out: 250_000}},
		cashboxes: []CashboxFlow{{CashboxID: 9, Out: 75_000}},
		holders:   []ShareholderFlow{{ShareholderID: 3, Allocated: 500_000, Contributed: 500_000, Spent: 420_000}},
	}
	svc := NewService(repo, &fakePayments{}, nil)

	accounts, err := svc.AccountBalances(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 750_000, accounts[0].Balance, 0.001)

	cashboxes, err := svc.CashboxBalances(context.Background())
	require.NoError(t, err)
	require.InDelta(t, -75_000, cashboxes[0].Balance, 0.001)

	holders, err := svc.ShareholderBalances(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 80_000, holders[0].Balance, 0.001)
}
