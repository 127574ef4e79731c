package capital

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// Repository defines persistence for plans, contributions and allocations.
type Repository interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	GetPlan(ctx context.Context, id int64) (Plan, error)
	ActivePlan(ctx context.Context) (Plan, error)
	CreatePlan(ctx context.Context, p Plan) (Plan, error)
	SetPlanStatus(ctx context.Context, id int64, status string) error
	PlansThrough(ctx context.Context, month internalshared.Month) ([]Plan, error)

	ListContributions(ctx context.Context, planID int64) ([]Contribution, error)
	CreateContribution(ctx context.Context, c Contribution) (Contribution, error)
	SumContributions(ctx context.Context, shareholderID int64, through time.Time) (decimal.Decimal, error)

	UpsertAllocation(ctx context.Context, a RabAllocation) (RabAllocation, error)
	ListAllocations(ctx context.Context, shareholderID int64, through time.Time) ([]RabAllocation, error)
	SumAllocations(ctx context.Context, shareholderID int64, through time.Time) (decimal.Decimal, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const planColumns = `id, period, target_total, status, note, created_at, updated_at`

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Period, &p.TargetTotal, &p.Status, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, internalshared.ErrNotFound
	}
	return p, err
}

func (r *repository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM capital_plans ORDER BY period DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *repository) GetPlan(ctx context.Context, id int64) (Plan, error) {
	return scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM capital_plans WHERE id = $1`, id))
}

func (r *repository) ActivePlan(ctx context.Context) (Plan, error) {
	return scanPlan(r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM capital_plans WHERE status = $1 ORDER BY period DESC LIMIT 1`, internalshared.PlanStatusActive))
}

func (r *repository) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO capital_plans (period, target_total, status, note, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		p.Period, p.TargetTotal, p.Status, p.Note, now).Scan(&p.ID)
	if err != nil {
		return Plan{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) SetPlanStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE capital_plans SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalshared.ErrNotFound
	}
	return nil
}

// PlansThrough returns plans whose period is at or before the given month,
// ordered oldest first so position summaries can carry balances forward.
func (r *repository) PlansThrough(ctx context.Context, month internalshared.Month) ([]Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM capital_plans WHERE period <= $1 ORDER BY period ASC`, month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

const contributionColumns = `id, plan_id, shareholder_id, account_id, amount, paid_at, note, created_at`

func (r *repository) ListContributions(ctx context.Context, planID int64) ([]Contribution, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+contributionColumns+` FROM capital_contributions WHERE plan_id = $1 ORDER BY paid_at ASC, id ASC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contribution
	for rows.Next() {
		var c Contribution
		if err := rows.Scan(&c.ID, &c.PlanID, &c.ShareholderID, &c.AccountID, &c.Amount, &c.PaidAt, &c.Note, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) CreateContribution(ctx context.Context, c Contribution) (Contribution, error) {
	now := time.Now()
	if c.PaidAt.IsZero() {
		c.PaidAt = now
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO capital_contributions (plan_id, shareholder_id, account_id, amount, paid_at, note, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		c.PlanID, c.ShareholderID, c.AccountID, c.Amount, c.PaidAt, c.Note, now).Scan(&c.ID)
	if err != nil {
		return Contribution{}, err
	}
	c.CreatedAt = now
	return c, nil
}

func (r *repository) SumContributions(ctx context.Context, shareholderID int64, through time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM capital_contributions WHERE shareholder_id = $1 AND paid_at < $2`,
		shareholderID, through).Scan(&sum)
	return sum, err
}

const allocationColumns = `id, shareholder_id, alloc_date, amount, note, created_at, updated_at`

// UpsertAllocation replaces the allocation for (shareholder, month). The
// unique index on (shareholder_id, alloc_date) makes the write idempotent.
func (r *repository) UpsertAllocation(ctx context.Context, a RabAllocation) (RabAllocation, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO rab_allocations (shareholder_id, alloc_date, amount, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (shareholder_id, alloc_date)
		 DO UPDATE SET amount = EXCLUDED.amount, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		a.ShareholderID, a.AllocDate, a.Amount, a.Note, now).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return RabAllocation{}, err
	}
	a.UpdatedAt = now
	return a, nil
}

func (r *repository) ListAllocations(ctx context.Context, shareholderID int64, through time.Time) ([]RabAllocation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+allocationColumns+` FROM rab_allocations WHERE shareholder_id = $1 AND alloc_date < $2 ORDER BY alloc_date ASC`,
		shareholderID, through)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RabAllocation
	for rows.Next() {
		var a RabAllocation
		if err := rows.Scan(&a.ID, &a.ShareholderID, &a.AllocDate, &a.Amount, &a.Note, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) SumAllocations(ctx context.Context, shareholderID int64, through time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM rab_allocations WHERE shareholder_id = $1 AND alloc_date < $2`,
		shareholderID, through).Scan(&sum)
	return sum, err
}
