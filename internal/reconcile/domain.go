package reconcile

import (
	"errors"
	"time"

	"github.com/artha-erp/artha-erp/internal/procurement"
)

// Payment statuses derived per purchase order.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "PAID"
	StatusOverdue PaymentStatus = "OVERDUE"
	StatusPartial PaymentStatus = "PARTIAL"
	StatusUnpaid  PaymentStatus = "UNPAID"
)

// POExpenseAllocation links an expense payment to a purchase order.
type POExpenseAllocation struct {
	ID        int64     `json:"id"`
	POID      int64     `json:"po_id"`
	ExpenseID int64     `json:"expense_id"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// POBalance is the computed payment position of a purchase order. Remaining
// is floored at zero; OverAllocated flags payments beyond the total, which
// the write path deliberately permits.
type POBalance struct {
	POID          int64         `json:"po_id"`
	Subtotal      float64       `json:"subtotal"`
	Total         float64       `json:"total"`
	Paid          float64       `json:"paid"`
	Remaining     float64       `json:"remaining"`
	OverAllocated bool          `json:"over_allocated"`
	DueDate       *time.Time    `json:"due_date,omitempty"`
	Status        PaymentStatus `json:"status"`
}

// AgingBuckets groups outstanding PO balances by days past due.
type AgingBuckets struct {
	Current   float64 `json:"current"`
	Bucket30  float64 `json:"bucket_30"`
	Bucket60  float64 `json:"bucket_60"`
	Bucket90  float64 `json:"bucket_90"`
	Bucket120 float64 `json:"bucket_120"`
}

var (
	ErrNotFound      = errors.New("reconcile: not found")
	ErrInvalidAmount = errors.New("reconcile: amount must be positive")
)

// ComputePOBalance derives total, paid and remaining for a PO. Tax-included
// orders already carry tax in line prices; otherwise tax is added on top of
// the subtotal.
func ComputePOBalance(po procurement.PurchaseOrder, items []procurement.POItem, paid float64) POBalance {
	subtotal := procurement.Subtotal(items)
	total := subtotal
	if !po.IsTaxIncluded {
		total = subtotal + subtotal*po.TaxPercent/100
	}
	remaining := total - paid
	over := remaining < 0
	if remaining < 0 {
		remaining = 0
	}
	return POBalance{
		POID:          po.ID,
		Subtotal:      subtotal,
		Total:         total,
		Paid:          paid,
		Remaining:     remaining,
		OverAllocated: over,
	}
}

// ResolveDueDate walks the fallback chain: explicit override, then the
// payment term. NET adds TermDays to the delivery date when known, else the
// PO date; CBD and COD fall due the day of the PO. Unknown terms yield nil,
// so no overdue determination is possible.
func ResolveDueDate(po procurement.PurchaseOrder) *time.Time {
	if po.DueDateOverride != nil {
		return po.DueDateOverride
	}
	switch po.PaymentTerm {
	case procurement.TermNet:
		base := po.PODate
		if po.DeliveryDate != nil {
			base = *po.DeliveryDate
		}
		due := base.AddDate(0, 0, po.TermDays)
		return &due
	case procurement.TermCBD, procurement.TermCOD:
		due := po.PODate
		return &due
	}
	return nil
}

// DerivePaymentStatus classifies a balance. Fully paid wins outright;
// overdue outranks partial once the due date has passed.
func DerivePaymentStatus(b POBalance, dueDate *time.Time, today time.Time) PaymentStatus {
	switch {
	case b.Remaining == 0:
		return StatusPaid
	case b.Remaining > 0 && dueDate != nil && today.After(*dueDate):
		return StatusOverdue
	case b.Paid > 0 && b.Paid < b.Total:
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
