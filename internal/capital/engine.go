package capital

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeObligation derives a shareholder's required contribution toward a
// plan: ownership_percent / 100 × target_total, rounded half-up to whole
// rupiah. The percent multiplication runs in decimal arithmetic; binary
// floats drift on common splits like 1/3.
func ComputeObligation(ownershipPercent float64, targetTotal decimal.Decimal) (decimal.Decimal, error) {
	if ownershipPercent < 0 || ownershipPercent > 100 {
		return decimal.Zero, ErrPercentOutOfRange
	}
	if !targetTotal.IsPositive() {
		return decimal.Zero, ErrTargetNotPositive
	}
	pct := decimal.NewFromFloat(ownershipPercent)
	// Round is half away from zero, which for non-negative obligations is
	// exactly round-half-up to the minor unit (IDR has none).
	return targetTotal.Mul(pct).Div(hundred).Round(0), nil
}

// derivePosition fills the balance fields from the aggregate inputs.
func derivePosition(p Position) Position {
	net := p.ContributionsTotal.Sub(p.ObligationTotal)
	p.NetPosition = net
	p.CreditBalance = maxZero(net)
	p.Outstanding = maxZero(net.Neg())
	return p
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
