package capital

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/artha-erp/artha-erp/internal/shareholders"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// ShareholderDirectory is the slice of the shareholders module the engine
// needs: ownership percentages and the active flag.
type ShareholderDirectory interface {
	Get(ctx context.Context, id int64) (shareholders.Shareholder, error)
	List(ctx context.Context, activeOnly bool) ([]shareholders.Shareholder, error)
}

type Service struct {
	logger *slog.Logger
	repo   Repository
	dir    ShareholderDirectory
	audit  *internalshared.AuditLogger
}

func NewService(logger *slog.Logger, repo Repository, dir ShareholderDirectory, audit *internalshared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, dir: dir, audit: audit}
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

func (s *Service) GetPlan(ctx context.Context, id int64) (Plan, error) {
	if id <= 0 {
		return Plan{}, errors.New("invalid plan ID")
	}
	return s.repo.GetPlan(ctx, id)
}

func (s *Service) CreatePlan(ctx context.Context, p Plan) (Plan, error) {
	p.Period = strings.TrimSpace(p.Period)
	if _, err := internalshared.ParseMonth(p.Period); err != nil {
		return Plan{}, ErrPeriodRequired
	}
	if !p.TargetTotal.IsPositive() {
		return Plan{}, ErrTargetNotPositive
	}
	if p.Status == "" {
		p.Status = internalshared.PlanStatusDraft
	}
	if p.Status != internalshared.PlanStatusDraft {
		return Plan{}, internalshared.ErrInvalidPlanTransition
	}

	created, err := s.repo.CreatePlan(ctx, p)
	if err != nil {
		return Plan{}, err
	}
	s.recordAudit(ctx, "create", "capital_plan", created.ID, map[string]any{
		"period": created.Period, "target_total": created.TargetTotal.String(),
	})
	return created, nil
}

// TransitionPlan moves a plan forward through draft, active, closed.
func (s *Service) TransitionPlan(ctx context.Context, id int64, target string) error {
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return err
	}
	if err := internalshared.ValidatePlanTransition(plan.Status, target); err != nil {
		return err
	}
	if plan.Status == target {
		return nil
	}
	if err := s.repo.SetPlanStatus(ctx, id, target); err != nil {
		return err
	}
	s.recordAudit(ctx, "transition", "capital_plan", id, map[string]any{
		"from": plan.Status, "to": target,
	})
	return nil
}

func (s *Service) ListContributions(ctx context.Context, planID int64) ([]Contribution, error) {
	if planID <= 0 {
		return nil, errors.New("invalid plan ID")
	}
	return s.repo.ListContributions(ctx, planID)
}

// RecordContribution registers a shareholder payment toward a plan. The sum
// of contributions versus the computed obligation is a soft check surfaced
// in the position summary, never a write-time rejection.
func (s *Service) RecordContribution(ctx context.Context, c Contribution) (Contribution, error) {
	if c.Amount.IsNegative() {
		return Contribution{}, ErrNegativeAmount
	}
	if _, err := s.repo.GetPlan(ctx, c.PlanID); err != nil {
		return Contribution{}, err
	}
	if _, err := s.dir.Get(ctx, c.ShareholderID); err != nil {
		return Contribution{}, err
	}

	created, err := s.repo.CreateContribution(ctx, c)
	if err != nil {
		return Contribution{}, err
	}
	s.recordAudit(ctx, "create", "capital_contribution", created.ID, map[string]any{
		"plan_id": created.PlanID, "shareholder_id": created.ShareholderID, "amount": created.Amount.String(),
	})
	return created, nil
}

// UpsertMonthlyAllocation writes the allocation snapshot for (shareholder,
// month). Repeating the call replaces the amount; allocations are a
// point-in-time snapshot per month, not additive transactions.
func (s *Service) UpsertMonthlyAllocation(ctx context.Context, shareholderID int64, month internalshared.Month, amount decimal.Decimal, note string) (RabAllocation, error) {
	if amount.IsNegative() {
		return RabAllocation{}, ErrNegativeAmount
	}
	if month.IsZero() {
		return RabAllocation{}, internalshared.ErrInvalidMonth
	}
	if _, err := s.dir.Get(ctx, shareholderID); err != nil {
		return RabAllocation{}, err
	}

	alloc, err := s.repo.UpsertAllocation(ctx, RabAllocation{
		ShareholderID: shareholderID,
		AllocDate:     month.Time(),
		Amount:        amount,
		Note:          note,
	})
	if err != nil {
		return RabAllocation{}, err
	}
	s.recordAudit(ctx, "upsert", "rab_allocation", alloc.ID, map[string]any{
		"shareholder_id": shareholderID, "month": month.String(), "amount": amount.String(),
	})
	return alloc, nil
}

func (s *Service) ListAllocations(ctx context.Context, shareholderID int64, through internalshared.Month) ([]RabAllocation, error) {
	if shareholderID <= 0 {
		return nil, errors.New("invalid shareholder ID")
	}
	return s.repo.ListAllocations(ctx, shareholderID, through.Next().Time())
}

// SummarizeShareholderPosition reconciles obligations against contributions
// and allocations as of the given month. Inactive shareholders keep their
// history; only new allocation generation skips them.
func (s *Service) SummarizeShareholderPosition(ctx context.Context, shareholderID int64, asOf internalshared.Month) (Position, error) {
	sh, err := s.dir.Get(ctx, shareholderID)
	if err != nil {
		return Position{}, err
	}

	plans, err := s.repo.PlansThrough(ctx, asOf)
	if err != nil {
		return Position{}, err
	}

	pos := Position{ShareholderID: shareholderID, AsOfMonth: asOf.String()}
	for _, plan := range plans {
		month, err := internalshared.ParseMonth(plan.Period)
		if err != nil {
			return Position{}, err
		}
		obligation, err := ComputeObligation(sh.OwnershipPercent, plan.TargetTotal)
		if err != nil {
			return Position{}, err
		}
		pos.ObligationTotal = pos.ObligationTotal.Add(obligation)
		if month.Year == asOf.Year {
			pos.ObligationYTD = pos.ObligationYTD.Add(obligation)
		}
		if month == asOf {
			pos.ObligationMTD = pos.ObligationMTD.Add(obligation)
		}
	}

	cutoff := asOf.Next().Time()
	if pos.ContributionsTotal, err = s.repo.SumContributions(ctx, shareholderID, cutoff); err != nil {
		return Position{}, err
	}
	if pos.AllocatedTotal, err = s.repo.SumAllocations(ctx, shareholderID, cutoff); err != nil {
		return Position{}, err
	}
	return derivePosition(pos), nil
}

// GenerateAllocationsForActivePlan snapshots each active shareholder's
// obligation toward the active plan as that month's RAB allocation. Used by
// the monthly background job; idempotent via the allocation upsert key.
func (s *Service) GenerateAllocationsForActivePlan(ctx context.Context) (int, error) {
	plan, err := s.repo.ActivePlan(ctx)
	if err != nil {
		if errors.Is(err, internalshared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	month, err := internalshared.ParseMonth(plan.Period)
	if err != nil {
		return 0, err
	}

	active, err := s.dir.List(ctx, true)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, sh := range active {
		obligation, err := ComputeObligation(sh.OwnershipPercent, plan.TargetTotal)
		if err != nil {
			s.logger.Warn("skip allocation generation",
				slog.Int64("shareholder_id", sh.ID), slog.Any("error", err))
			continue
		}
		if _, err := s.repo.UpsertAllocation(ctx, RabAllocation{
			ShareholderID: sh.ID,
			AllocDate:     month.Time(),
			Amount:        obligation,
			Note:          "generated from plan " + plan.Period,
		}); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := internalshared.AuditLog{
		ActorID:  actorID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Error("audit record failed", slog.Any("error", err), slog.String("entity", entity))
	}
}

func actorID(ctx context.Context) int64 {
	sess := internalshared.SessionFromContext(ctx)
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}
