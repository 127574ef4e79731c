package expenses

import (
	"errors"
	"time"
)

// Funding sources. Each expense draws from exactly one.
type Source string

const (
	SourceRAB    Source = "RAB"
	SourcePTBank Source = "PT_BANK"
	SourcePetty  Source = "PETTY"
)

// Expense lifecycle statuses. Expenses are audit-critical: they are voided,
// never deleted, and void rows drop out of every total.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// Expense is a cash outflow from one of the three funding sources. The
// source discriminator decides which foreign key must be set: RAB pays from
// a shareholder's allocation, PT_BANK from a company bank account, PETTY
// from a cashbox.
type Expense struct {
	ID            int64      `json:"id"`
	Source        Source     `json:"source"`
	ShareholderID *int64     `json:"shareholder_id,omitempty"`
	AccountID     *int64     `json:"account_id,omitempty"`
	CashboxID     *int64     `json:"cashbox_id,omitempty"`
	Amount        float64    `json:"amount"`
	Status        Status     `json:"status"`
	SpentAt       time.Time  `json:"spent_at"`
	Description   string     `json:"description"`
	VoidReason    string     `json:"void_reason,omitempty"`
	VoidedAt      *time.Time `json:"voided_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

var (
	ErrNotFound       = errors.New("expenses: not found")
	ErrInvalidState   = errors.New("expenses: invalid state transition")
	ErrInvalidSource  = errors.New("expenses: source requires exactly one matching funding reference")
	ErrInvalidAmount  = errors.New("expenses: amount must be positive")
	ErrReasonRequired = errors.New("expenses: void reason is required")
)

// ValidateSource checks that exactly the foreign key matching the source is
// populated and the other two are empty.
func (e Expense) ValidateSource() error {
	set := 0
	if e.ShareholderID != nil {
		set++
	}
	if e.AccountID != nil {
		set++
	}
	if e.CashboxID != nil {
		set++
	}
	if set != 1 {
		return ErrInvalidSource
	}
	switch e.Source {
	case SourceRAB:
		if e.ShareholderID == nil {
			return ErrInvalidSource
		}
	case SourcePTBank:
		if e.AccountID == nil {
			return ErrInvalidSource
		}
	case SourcePetty:
		if e.CashboxID == nil {
			return ErrInvalidSource
		}
	default:
		return ErrInvalidSource
	}
	return nil
}
