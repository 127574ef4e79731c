package procurement

import (
	"errors"
	"time"
)

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusIssued    POStatus = "ISSUED"
	POStatusClosed    POStatus = "CLOSED"
	POStatusCancelled POStatus = "CANCELLED"
)

// Goods receipt statuses.
type GRNStatus string

const (
	GRNStatusDraft     GRNStatus = "DRAFT"
	GRNStatusPosted    GRNStatus = "POSTED"
	GRNStatusCancelled GRNStatus = "CANCELLED"
)

// Payment terms. NET uses TermDays from the base date; cash before delivery
// and cash on delivery fall due the same day.
type PaymentTerm string

const (
	TermNet PaymentTerm = "NET"
	TermCBD PaymentTerm = "CBD"
	TermCOD PaymentTerm = "COD"
)

// PurchaseOrder is a procurement commitment against a vendor. Tax terms
// decide whether line totals already carry tax; due dates derive from the
// payment term unless overridden.
type PurchaseOrder struct {
	ID              int64       `json:"id"`
	Number          string      `json:"po_number"`
	VendorID        int64       `json:"vendor_id"`
	Status          POStatus    `json:"status"`
	PODate          time.Time   `json:"po_date"`
	DeliveryDate    *time.Time  `json:"delivery_date,omitempty"`
	IsTaxIncluded   bool        `json:"is_tax_included"`
	TaxPercent      float64     `json:"tax_percent"`
	PaymentTerm     PaymentTerm `json:"payment_term"`
	TermDays        int         `json:"term_days"`
	DueDateOverride *time.Time  `json:"due_date_override,omitempty"`
	Note            string      `json:"note"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// POItem is one purchase order line.
type POItem struct {
	ID          int64   `json:"id"`
	POID        int64   `json:"po_id"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
}

// GoodsReceipt records physical receipt against a PO.
type GoodsReceipt struct {
	ID         int64     `json:"id"`
	Number     string    `json:"grn_number"`
	POID       int64     `json:"po_id"`
	Status     GRNStatus `json:"status"`
	ReceivedAt time.Time `json:"received_at"`
	Note       string    `json:"note"`
}

// GRNLine is a received quantity against a PO line. QtyReceived may exceed
// the ordered quantity; overage is recorded, not rejected.
type GRNLine struct {
	ID          int64   `json:"id"`
	GRNID       int64   `json:"grn_id"`
	POItemID    int64   `json:"po_item_id"`
	QtyReceived float64 `json:"qty_received"`
	Note        string  `json:"note"`
}

var (
	ErrNotFound        = errors.New("procurement: not found")
	ErrValidation      = errors.New("procurement: validation failed")
	ErrInvalidState    = errors.New("procurement: invalid state transition")
	ErrDuplicateNumber = errors.New("procurement: PO number already in use")
)

// Subtotal sums qty × unit price over the lines.
func Subtotal(items []POItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Qty * it.UnitPrice
	}
	return sum
}

var poTransitions = map[POStatus][]POStatus{
	POStatusDraft:  {POStatusIssued, POStatusCancelled},
	POStatusIssued: {POStatusClosed, POStatusCancelled},
}

// CanTransition reports whether a PO status move is allowed.
func CanTransition(from, to POStatus) bool {
	for _, allowed := range poTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
