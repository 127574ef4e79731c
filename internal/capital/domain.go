package capital

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a capital injection round: a funding target for a period that
// active shareholders fill in proportion to ownership.
type Plan struct {
	ID          int64           `json:"id"`
	Period      string          `json:"period"`
	TargetTotal decimal.Decimal `json:"target_total"`
	Status      string          `json:"status"`
	Note        string          `json:"note"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Contribution is an actual payment by a shareholder toward a plan.
// AccountID, when set, names the bank account the cash landed in so the
// ledger can count the top-up.
type Contribution struct {
	ID            int64           `json:"id"`
	PlanID        int64           `json:"plan_id"`
	ShareholderID int64           `json:"shareholder_id"`
	AccountID     *int64          `json:"account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RabAllocation is the monthly budget snapshot per shareholder. One row per
// (shareholder_id, alloc_date); upserts replace, never accumulate.
type RabAllocation struct {
	ID            int64           `json:"id"`
	ShareholderID int64           `json:"shareholder_id"`
	AllocDate     time.Time       `json:"alloc_date"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Position is the reconciled view of a shareholder's capital account as of
// a given month. Outstanding and credit are floored at zero; net position
// carries the sign.
type Position struct {
	ShareholderID      int64           `json:"shareholder_id"`
	AsOfMonth          string          `json:"as_of_month"`
	ObligationTotal    decimal.Decimal `json:"obligation_total"`
	ObligationYTD      decimal.Decimal `json:"obligation_ytd"`
	ObligationMTD      decimal.Decimal `json:"obligation_mtd"`
	AllocatedTotal     decimal.Decimal `json:"allocated_total"`
	ContributionsTotal decimal.Decimal `json:"contributions_total"`
	CreditBalance      decimal.Decimal `json:"credit_balance"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	NetPosition        decimal.Decimal `json:"net_position"`
}

var (
	ErrPercentOutOfRange = errors.New("ownership percent must be between 0 and 100")
	ErrTargetNotPositive = errors.New("plan target total must be positive")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrPeriodRequired    = errors.New("plan period is required")
)
