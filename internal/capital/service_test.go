package capital

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/artha-erp/artha-erp/internal/shareholders"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

type fakeRepo struct {
	nextID        int64
	plans         map[int64]Plan
	contributions []Contribution
	allocations   map[string]RabAllocation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, plans: map[int64]Plan{}, allocations: map[string]RabAllocation{}}
}

func allocKey(shareholderID int64, allocDate time.Time) string {
	return allocDate.UTC().Format("2006-01") + "/" + strconv.FormatInt(shareholderID, 10)
}

func (f *fakeRepo) ListPlans(context.Context) ([]Plan, error) {
	var out []Plan
	for _, p := range f.plans {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) GetPlan(_ context.Context, id int64) (Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return Plan{}, internalshared.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) ActivePlan(context.Context) (Plan, error) {
	for _, p := range f.plans {
		if p.Status == internalshared.PlanStatusActive {
			return p, nil
		}
	}
	return Plan{}, internalshared.ErrNotFound
}

func (f *fakeRepo) CreatePlan(_ context.Context, p Plan) (Plan, error) {
	p.ID = f.nextID
	f.nextID++
	f.plans[p.ID] = p
	return p, nil
}

func (f *fakeRepo) SetPlanStatus(_ context.Context, id int64, status string) error {
	p, ok := f.plans[id]
	if !ok {
		return internalshared.ErrNotFound
	}
	p.Status = status
	f.plans[id] = p
	return nil
}

func (f *fakeRepo) PlansThrough(_ context.Context, month internalshared.Month) ([]Plan, error) {
	var out []Plan
	for _, p := range f.plans {
		if p.Period <= month.String() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListContributions(_ context.Context, planID int64) ([]Contribution, error) {
	var out []Contribution
	for _, c := range f.contributions {
		if c.PlanID == planID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateContribution(_ context.Context, c Contribution) (Contribution, error) {
	c.ID = f.nextID
	f.nextID++
	if c.PaidAt.IsZero() {
		c.PaidAt = time.Now()
	}
	f.contributions = append(f.contributions, c)
	return c, nil
}

func (f *fakeRepo) SumContributions(_ context.Context, shareholderID int64, through time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range f.contributions {
		if c.ShareholderID == shareholderID && c.PaidAt.Before(through) {
			sum = sum.Add(c.Amount)
		}
	}
	return sum, nil
}

func (f *fakeRepo) UpsertAllocation(_ context.Context, a RabAllocation) (RabAllocation, error) {
	key := allocKey(a.ShareholderID, a.AllocDate)
	if existing, ok := f.allocations[key]; ok {
		a.ID = existing.ID
	} else {
		a.ID = f.nextID
		f.nextID++
	}
	f.allocations[key] = a
	return a, nil
}

func (f *fakeRepo) ListAllocations(_ context.Context, shareholderID int64, through time.Time) ([]RabAllocation, error) {
	var out []RabAllocation
	for _, a := range f.allocations {
		if a.ShareholderID == shareholderID && a.AllocDate.Before(through) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) SumAllocations(_ context.Context, shareholderID int64, through time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, a := range f.allocations {
		if a.ShareholderID == shareholderID && a.AllocDate.Before(through) {
			sum = sum.Add(a.Amount)
		}
	}
	return sum, nil
}

type fakeDirectory struct {
	items map[int64]shareholders.Shareholder
}

func (f *fakeDirectory) Get(_ context.Context, id int64) (shareholders.Shareholder, error) {
	sh, ok := f.items[id]
	if !ok {
		return shareholders.Shareholder{}, internalshared.ErrNotFound
	}
	return sh, nil
}

func (f *fakeDirectory) List(_ context.Context, activeOnly bool) ([]shareholders.Shareholder, error) {
	var out []shareholders.Shareholder
	for _, sh := range f.items {
		if activeOnly && !sh.IsActive {
			continue
		}
		out = append(out, sh)
	}
	return out, nil
}

func newTestService(repo *fakeRepo, dir *fakeDirectory) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, dir, nil)
}

func month(t *testing.T, s string) internalshared.Month {
	t.Helper()
	m, err := internalshared.ParseMonth(s)
	require.NoError(t, err)
	return m
}

func TestUpsertMonthlyAllocationIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{items: map[int64]shareholders.Shareholder{
		1: {ID: 1, Name: "Andi", OwnershipPercent: 60, IsActive: true},
	}}
	svc := newTestService(repo, dir)

	m := month(t, "2025-03")
	first, err := svc.UpsertMonthlyAllocation(context.Background(), 1, m, decimal.NewFromInt(500_000), "")
	require.NoError(t, err)

	second, err := svc.UpsertMonthlyAllocation(context.Background(), 1, m, decimal.NewFromInt(500_000), "")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.allocations, 1)

	// A new amount replaces, never accumulates.
	replaced, err := svc.UpsertMonthlyAllocation(context.Background(), 1, m, decimal.NewFromInt(750_000), "")
	require.NoError(t, err)
	require.Equal(t, first.ID, replaced.ID)
	require.Len(t, repo.allocations, 1)

	sum, err := repo.SumAllocations(context.Background(), 1, m.Next().Time())
	require.NoError(t, err)
	require.True(t, sum.Equal(decimal.NewFromInt(750_000)), "got %s", sum)
}

func TestUpsertMonthlyAllocationValidation(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{items: map[int64]shareholders.Shareholder{}}
	svc := newTestService(repo, dir)

	_, err := svc.UpsertMonthlyAllocation(context.Background(), 1, month(t, "2025-03"), decimal.NewFromInt(-1), "")
	require.ErrorIs(t, err, ErrNegativeAmount)

	_, err = svc.UpsertMonthlyAllocation(context.Background(), 1, month(t, "2025-03"), decimal.NewFromInt(100), "")
	require.ErrorIs(t, err, internalshared.ErrNotFound)
}

func TestSummarizeShareholderPosition(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{items: map[int64]shareholders.Shareholder{
		1: {ID: 1, Name: "Andi", OwnershipPercent: 60, IsActive: true},
	}}
	svc := newTestService(repo, dir)

	_, err := repo.CreatePlan(context.Background(), Plan{
		Period:      "2025-03",
		TargetTotal: decimal.NewFromInt(1_000_000),
		Status:      internalshared.PlanStatusActive,
	})
	require.NoError(t, err)

	asOf := month(t, "2025-03")

	// Obligation 600,000 with nothing paid.
	pos, err := svc.SummarizeShareholderPosition(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.True(t, pos.ObligationTotal.Equal(decimal.NewFromInt(600_000)))
	require.True(t, pos.ObligationMTD.Equal(decimal.NewFromInt(600_000)))
	require.True(t, pos.Outstanding.Equal(decimal.NewFromInt(600_000)))
	require.True(t, pos.CreditBalance.IsZero())

	// Full contribution zeroes the position.
	_, err = svc.RecordContribution(context.Background(), Contribution{
		PlanID:        1,
		ShareholderID: 1,
		Amount:        decimal.NewFromInt(600_000),
		PaidAt:        asOf.Time(),
	})
	require.NoError(t, err)

	pos, err = svc.SummarizeShareholderPosition(context.Background(), 1, asOf)
	require.NoError(t, err)
	require.True(t, pos.NetPosition.IsZero())
	require.True(t, pos.Outstanding.IsZero())
	require.True(t, pos.CreditBalance.IsZero())
}

func TestPositionCarriesBalanceAcrossPeriods(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{items: map[int64]shareholders.Shareholder{
		1: {ID: 1, Name: "Andi", OwnershipPercent: 50, IsActive: true},
	}}
	svc := newTestService(repo, dir)

	for _, period := range []string{"2025-01", "2025-02"} {
		_, err := repo.CreatePlan(context.Background(), Plan{
			Period:      period,
			TargetTotal: decimal.NewFromInt(200_000),
			Status:      internalshared.PlanStatusClosed,
		})
		require.NoError(t, err)
	}

	// Overpaid January carries forward as credit against February.
	_, err := svc.RecordContribution(context.Background(), Contribution{
		PlanID:        1,
		ShareholderID: 1,
		Amount:        decimal.NewFromInt(150_000),
		PaidAt:        month(t, "2025-01").Time(),
	})
	require.NoError(t, err)

	pos, err := svc.SummarizeShareholderPosition(context.Background(), 1, month(t, "2025-01"))
	require.NoError(t, err)
	require.True(t, pos.CreditBalance.Equal(decimal.NewFromInt(50_000)), "got %s", pos.CreditBalance)

	pos, err = svc.SummarizeShareholderPosition(context.Background(), 1, month(t, "2025-02"))
	require.NoError(t, err)
	require.True(t, pos.ObligationTotal.Equal(decimal.NewFromInt(200_000)))
	require.True(t, pos.Outstanding.Equal(decimal.NewFromInt(50_000)), "got %s", pos.Outstanding)
}

func TestTransitionPlanForwardOnly(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{items: map[int64]shareholders.Shareholder{}}
	svc := newTestService(repo, dir)

	plan, err := svc.CreatePlan(context.Background(), Plan{Period: "2025-04", TargetTotal: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.Equal(t, internalshared.PlanStatusDraft, plan.Status)

	require.NoError(t, svc.TransitionPlan(context.Background(), plan.ID, internalshared.PlanStatusActive))
	require.NoError(t, svc.TransitionPlan(context.Background(), plan.ID, internalshared.PlanStatusClosed))

	err = svc.TransitionPlan(context.Background(), plan.ID, internalshared.PlanStatusDraft)
	require.ErrorIs(t, err, internalshared.ErrInvalidPlanTransition)
}

func TestGenerateAllocationsSkipsInactive(t *testing.T) {
	repo := newFakeRepo()
	dir := &fakeDirectory{items: map[int64]shareholders.Shareholder{
		1: {ID: 1, Name: "Andi", OwnershipPercent: 60, IsActive: true},
		2: {ID: 2, Name: "Budi", OwnershipPercent: 40, IsActive: false},
	}}
	svc := newTestService(repo, dir)

	_, err := repo.CreatePlan(context.Background(), Plan{
		Period:      "2025-05",
		TargetTotal: decimal.NewFromInt(1_000_000),
		Status:      internalshared.PlanStatusActive,
	})
	require.NoError(t, err)

	count, err := svc.GenerateAllocationsForActivePlan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, repo.allocations, 1)

	// Idempotent: a second run rewrites the same row.
	count, err = svc.GenerateAllocationsForActivePlan(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, repo.allocations, 1)
}
