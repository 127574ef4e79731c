package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/artha-erp/artha-erp/internal/procurement"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestComputePOBalanceTaxTerms(t *testing.T) {
	items := []procurement.POItem{{Qty: 2, UnitPrice: 500}}

	// Tax included: line prices already carry tax.
	b := ComputePOBalance(procurement.PurchaseOrder{IsTaxIncluded: true, TaxPercent: 11}, items, 0)
	require.InDelta(t, 1000, b.Subtotal, 0.001)
	require.InDelta(t, 1000, b.Total, 0.001)

	// Tax excluded: 11% on top.
	b = ComputePOBalance(procurement.PurchaseOrder{IsTaxIncluded: false, TaxPercent: 11}, items, 0)
	require.InDelta(t, 1110, b.Total, 0.001)

	// Round-trip from the PO creation shape: qty 2 × 500, tax excluded 10%.
	b = ComputePOBalance(procurement.PurchaseOrder{IsTaxIncluded: false, TaxPercent: 10}, items, 0)
	require.InDelta(t, 1000, b.Subtotal, 0.001)
	require.InDelta(t, 1100, b.Total, 0.001)
	require.InDelta(t, 1100, b.Remaining, 0.001)
}

func TestComputePOBalanceOverAllocation(t *testing.T) {
	items := []procurement.POItem{{Qty: 1, UnitPrice: 1000}}
	po := procurement.PurchaseOrder{IsTaxIncluded: true}

	b := ComputePOBalance(po, items, 1200)
	require.True(t, b.OverAllocated)
	require.InDelta(t, 0, b.Remaining, 0.001)
	require.InDelta(t, 1200, b.Paid, 0.001)
}

func TestDerivePaymentStatus(t *testing.T) {
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	items := []procurement.POItem{{Qty: 1, UnitPrice: 1000}}
	po := procurement.PurchaseOrder{IsTaxIncluded: true}

	b := ComputePOBalance(po, items, 1000)
	require.Equal(t, StatusPaid, DerivePaymentStatus(b, datePtr(2026, 8, 1), today))

	b = ComputePOBalance(po, items, 400)
	require.Equal(t, StatusPartial, DerivePaymentStatus(b, nil, today))

	// Overdue outranks partial once the due date has passed.
	require.Equal(t, StatusOverdue, DerivePaymentStatus(b, datePtr(2026, 8, 1), today))

	b = ComputePOBalance(po, items, 0)
	require.Equal(t, StatusOverdue, DerivePaymentStatus(b, datePtr(2026, 8, 1), today))
	require.Equal(t, StatusUnpaid, DerivePaymentStatus(b, datePtr(2026, 10, 1), today))
	require.Equal(t, StatusUnpaid, DerivePaymentStatus(b, nil, today))
}

func TestResolveDueDate(t *testing.T) {
	poDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Explicit override wins over everything.
	override := datePtr(2026, 5, 1)
	po := procurement.PurchaseOrder{PODate: poDate, PaymentTerm: procurement.TermNet, TermDays: 30, DueDateOverride: override}
	require.Equal(t, override, ResolveDueDate(po))

	// NET from the PO date when no delivery date is known.
	po = procurement.PurchaseOrder{PODate: poDate, PaymentTerm: procurement.TermNet, TermDays: 30}
	due := ResolveDueDate(po)
	require.NotNil(t, due)
	require.Equal(t, poDate.AddDate(0, 0, 30), *due)

	// NET from the delivery date when present.
	po.DeliveryDate = datePtr(2026, 3, 20)
	due = ResolveDueDate(po)
	require.NotNil(t, due)
	require.Equal(t, po.DeliveryDate.AddDate(0, 0, 30), *due)

	// Cash terms fall due the day of the PO.
	po = procurement.PurchaseOrder{PODate: poDate, PaymentTerm: procurement.TermCOD}
	due = ResolveDueDate(po)
	require.NotNil(t, due)
	require.Equal(t, poDate, *due)

	// Unknown terms cannot produce a due date.
	po = procurement.PurchaseOrder{PODate: poDate}
	require.Nil(t, ResolveDueDate(po))
}
