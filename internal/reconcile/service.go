package reconcile

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/artha-erp/artha-erp/internal/procurement"
	"github.com/artha-erp/artha-erp/internal/shared"
)

// POReader is the slice of procurement the reconciler needs.
type POReader interface {
	GetPurchaseOrder(ctx context.Context, id int64) (procurement.PurchaseOrder, []procurement.POItem, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	pos   POReader
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, pos POReader, audit AuditPort) *Service {
	return &Service{repo: repo, pos: pos, audit: audit, now: time.Now}
}

// AllocateExpenseToPO links an expense payment to a purchase order in one
// atomic write. The amount is not checked against the remaining balance;
// over-allocation surfaces at read time instead.
func (s *Service) AllocateExpenseToPO(ctx context.Context, expenseID, poID int64, amount float64, note string) (POExpenseAllocation, error) {
	if amount <= 0 {
		return POExpenseAllocation{}, ErrInvalidAmount
	}
	created, err := s.repo.InsertAllocation(ctx, POExpenseAllocation{
		POID:      poID,
		ExpenseID: expenseID,
		Amount:    amount,
		Note:      note,
	})
	if err != nil {
		return POExpenseAllocation{}, err
	}
	s.recordAudit(ctx, "PO_ALLOCATE", created.ID, map[string]any{
		"po_id": poID, "expense_id": expenseID, "amount": amount,
	})
	return created, nil
}

// POPaymentSummary computes the balance and payment status of one PO.
func (s *Service) POPaymentSummary(ctx context.Context, poID int64) (POBalance, error) {
	po, items, err := s.pos.GetPurchaseOrder(ctx, poID)
	if err != nil {
		if errors.Is(err, procurement.ErrNotFound) {
			return POBalance{}, ErrNotFound
		}
		return POBalance{}, err
	}
	paid, err := s.repo.SumPaidForPO(ctx, poID)
	if err != nil {
		return POBalance{}, err
	}

	balance := ComputePOBalance(po, items, paid)
	balance.DueDate = ResolveDueDate(po)
	balance.Status = DerivePaymentStatus(balance, balance.DueDate, s.now())
	return balance, nil
}

// OpenPOSummaries computes balances for every purchase order that is not
// cancelled. Ledger views consume this as their PO payment projection.
func (s *Service) OpenPOSummaries(ctx context.Context) ([]POBalance, error) {
	ids, err := s.repo.OpenPOIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]POBalance, 0, len(ids))
	for _, id := range ids {
		balance, err := s.POPaymentSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, balance)
	}
	return out, nil
}

// ListAllocations returns the payment links against a PO.
func (s *Service) ListAllocations(ctx context.Context, poID int64) ([]POExpenseAllocation, error) {
	return s.repo.ListAllocationsForPO(ctx, poID)
}

// Aging buckets outstanding PO balances by days past due as of the given
// date. Orders without a resolvable due date count as current.
func (s *Service) Aging(ctx context.Context, asOf time.Time) (AgingBuckets, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	ids, err := s.repo.OpenPOIDs(ctx)
	if err != nil {
		return AgingBuckets{}, err
	}

	var buckets AgingBuckets
	for _, id := range ids {
		balance, err := s.POPaymentSummary(ctx, id)
		if err != nil {
			return AgingBuckets{}, err
		}
		if balance.Remaining <= 0 {
			continue
		}
		days := 0
		if balance.DueDate != nil {
			days = int(asOf.Sub(*balance.DueDate).Hours() / 24)
		}
		switch {
		case days <= 0:
			buckets.Current += balance.Remaining
		case days <= 30:
			buckets.Bucket30 += balance.Remaining
		case days <= 60:
			buckets.Bucket60 += balance.Remaining
		case days <= 90:
			buckets.Bucket90 += balance.Remaining
		default:
			buckets.Bucket120 += balance.Remaining
		}
	}
	return buckets, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "po_allocation", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}
