package ledger

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/singleflight"

	"github.com/artha-erp/artha-erp/internal/reconcile"
	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// ExpenseGridCell is one month × funding source total of posted expenses.
type ExpenseGridCell struct {
	Period string  `json:"period"`
	Source string  `json:"source"`
	Total  float64 `json:"total"`
}

// AccountFlow is the in/out movement of one bank account: capital top-ups
// in, posted PT_BANK expenses out.
type AccountFlow struct {
	AccountID int64   `json:"account_id"`
	In        float64 `json:"in"`
	Out       float64 `json:"out"`
	Balance   float64 `json:"balance"`
}

// CashboxFlow is the outflow of one petty cashbox.
type CashboxFlow struct {
	CashboxID int64   `json:"cashbox_id"`
	Out       float64 `json:"out"`
	Balance   float64 `json:"balance"`
}

// ShareholderFlow aggregates one shareholder's allocations, contributions
// and posted RAB spending.
type ShareholderFlow struct {
	ShareholderID int64   `json:"shareholder_id"`
	Allocated     float64 `json:"allocated"`
	Contributed   float64 `json:"contributed"`
	Spent         float64 `json:"spent"`
	Balance       float64 `json:"balance"`
}

// PaymentSource exposes the PO payment projection.
type PaymentSource interface {
	OpenPOSummaries(ctx context.Context) ([]reconcile.POBalance, error)
}

// Service builds the ledger read models. Concurrent requests for the same
// view collapse into one build via singleflight; results are cached in
// Redis but always recomputable from the base tables.
type Service struct {
	repo     Repository
	payments PaymentSource
	cache    *Cache
	group    singleflight.Group
}

func NewService(repo Repository, payments PaymentSource, cache *Cache) *Service {
	return &Service{repo: repo, payments: payments, cache: cache}
}

// ExpenseGrid returns the monthly expense totals per funding source.
func (s *Service) ExpenseGrid(ctx context.Context, from, to internalshared.Month) ([]ExpenseGridCell, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		cells, err := s.repo.MonthlyExpenseGrid(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if cells == nil {
			cells = []ExpenseGridCell{}
		}
		return cells, nil
	}
	var cells []ExpenseGridCell
	if err := s.fetch(ctx, &cells, loader, "ledger", "expense_grid", from.String(), to.String()); err != nil {
		return nil, err
	}
	return cells, nil
}

// AccountBalances returns per-account in, out and balance.
func (s *Service) AccountBalances(ctx context.Context) ([]AccountFlow, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		flows, err := s.repo.AccountFlows(ctx)
		if err != nil {
			return nil, err
		}
		for i := range flows {
			flows[i].Balance = flows[i].In - flows[i].Out
		}
		if flows == nil {
			flows = []AccountFlow{}
		}
		return flows, nil
	}
	var flows []AccountFlow
	if err := s.fetch(ctx, &flows, loader, "ledger", "accounts"); err != nil {
		return nil, err
	}
	return flows, nil
}

// CashboxBalances returns per-cashbox outflow. Cashboxes are funded out of
// band, so the view reports spending as a negative balance.
func (s *Service) CashboxBalances(ctx context.Context) ([]CashboxFlow, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		flows, err := s.repo.CashboxFlows(ctx)
		if err != nil {
			return nil, err
		}
		for i := range flows {
			flows[i].Balance = -flows[i].Out
		}
		if flows == nil {
			flows = []CashboxFlow{}
		}
		return flows, nil
	}
	var flows []CashboxFlow
	if err := s.fetch(ctx, &flows, loader, "ledger", "cashboxes"); err != nil {
		return nil, err
	}
	return flows, nil
}

// ShareholderBalances returns allocation versus spending per shareholder.
func (s *Service) ShareholderBalances(ctx context.Context) ([]ShareholderFlow, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		flows, err := s.repo.ShareholderFlows(ctx)
		if err != nil {
			return nil, err
		}
		for i := range flows {
			flows[i].Balance = flows[i].Allocated - flows[i].Spent
		}
		if flows == nil {
			flows = []ShareholderFlow{}
		}
		return flows, nil
	}
	var flows []ShareholderFlow
	if err := s.fetch(ctx, &flows, loader, "ledger", "shareholders"); err != nil {
		return nil, err
	}
	return flows, nil
}

// POPayments returns the payment summary of every open purchase order.
func (s *Service) POPayments(ctx context.Context) ([]reconcile.POBalance, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		balances, err := s.payments.OpenPOSummaries(ctx)
		if err != nil {
			return nil, err
		}
		if balances == nil {
			balances = []reconcile.POBalance{}
		}
		return balances, nil
	}
	var balances []reconcile.POBalance
	if err := s.fetch(ctx, &balances, loader, "ledger", "po_payments"); err != nil {
		return nil, err
	}
	return balances, nil
}

// Invalidate bumps the cache version after a financial write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warmup rebuilds the heavyweight views so the first dashboard hit after an
// invalidation does not pay the build cost.
func (s *Service) Warmup(ctx context.Context, from, to internalshared.Month) error {
	if _, err := s.ExpenseGrid(ctx, from, to); err != nil {
		return err
	}
	if _, err := s.AccountBalances(ctx); err != nil {
		return err
	}
	if _, err := s.ShareholderBalances(ctx); err != nil {
		return err
	}
	_, err := s.POPayments(ctx)
	return err
}

func (s *Service) fetch(ctx context.Context, dest interface{}, loader func(context.Context) (interface{}, error), keyParts ...string) error {
	key, err := s.cache.BuildKey(ctx, keyParts...)
	if err != nil {
		return err
	}
	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(value.(json.RawMessage), dest)
}
