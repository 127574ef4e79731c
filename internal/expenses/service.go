package expenses

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/artha-erp/artha-erp/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, f Filters) ([]Expense, int, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, errors.New("invalid expense ID")
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a draft expense after checking the funding-source shape.
func (s *Service) Create(ctx context.Context, e Expense) (Expense, error) {
	if err := s.validate(&e); err != nil {
		return Expense{}, err
	}
	e.Status = StatusDraft
	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return Expense{}, err
	}
	s.recordAudit(ctx, "EXPENSE_CREATE", created.ID, map[string]any{
		"source": created.Source, "amount": created.Amount,
	})
	return created, nil
}

// Update rewrites a draft expense. Posted and void expenses are immutable.
func (s *Service) Update(ctx context.Context, id int64, e Expense) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return ErrInvalidState
	}
	if err := s.validate(&e); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, e); err != nil {
		return err
	}
	s.recordAudit(ctx, "EXPENSE_UPDATE", id, map[string]any{"amount": e.Amount})
	return nil
}

// Post moves a draft expense into the totals.
func (s *Service) Post(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return ErrInvalidState
	}
	if err := s.repo.SetStatus(ctx, id, StatusPosted, "", nil); err != nil {
		return err
	}
	s.recordAudit(ctx, "EXPENSE_POST", id, map[string]any{"amount": current.Amount})
	return nil
}

// Void retires an expense instead of deleting it. The row stays for the
// audit trail; every total excludes it from here on.
func (s *Service) Void(ctx context.Context, id int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == StatusVoid {
		return ErrInvalidState
	}
	now := time.Now()
	if err := s.repo.SetStatus(ctx, id, StatusVoid, reason, &now); err != nil {
		return err
	}
	s.recordAudit(ctx, "EXPENSE_VOID", id, map[string]any{
		"amount": current.Amount, "reason": reason,
	})
	return nil
}

func (s *Service) validate(e *Expense) error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if err := e.ValidateSource(); err != nil {
		return err
	}
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now()
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "expense", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
