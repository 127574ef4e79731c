package capital

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeObligation(t *testing.T) {
	target := decimal.NewFromInt(1_000_000)

	got, err := ComputeObligation(60, target)
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(600_000)), "got %s", got)

	got, err = ComputeObligation(0, target)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	got, err = ComputeObligation(100, target)
	require.NoError(t, err)
	require.True(t, got.Equal(target))
}

func TestComputeObligationRoundsHalfUp(t *testing.T) {
	// 33.335% of 1000 = 333.35 -> 333; 33.35% of 10 = 3.335 -> 3 (below half)
	// and 25% of 10 with an odd split: 2.5 -> 3.
	got, err := ComputeObligation(25, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(3)), "got %s", got)

	got, err = ComputeObligation(33.33, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(33)), "got %s", got)
}

func TestComputeObligationValidation(t *testing.T) {
	_, err := ComputeObligation(-1, decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrPercentOutOfRange)

	_, err = ComputeObligation(101, decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrPercentOutOfRange)

	_, err = ComputeObligation(50, decimal.Zero)
	require.ErrorIs(t, err, ErrTargetNotPositive)

	_, err = ComputeObligation(50, decimal.NewFromInt(-10))
	require.ErrorIs(t, err, ErrTargetNotPositive)
}

func TestObligationsSumToTarget(t *testing.T) {
	// The per-shareholder rounding error must stay within one rupiah each.
	target := decimal.NewFromInt(1_000_001)
	percents := []float64{33.33, 33.33, 33.34}

	sum := decimal.Zero
	for _, pct := range percents {
		ob, err := ComputeObligation(pct, target)
		require.NoError(t, err)
		require.True(t, ob.GreaterThanOrEqual(decimal.Zero))
		require.True(t, ob.LessThanOrEqual(target))
		sum = sum.Add(ob)
	}

	diff := sum.Sub(target).Abs()
	tolerance := decimal.NewFromInt(int64(len(percents)))
	require.True(t, diff.LessThanOrEqual(tolerance), "sum %s drifts %s from target", sum, diff)
}

func TestDerivePosition(t *testing.T) {
	pos := derivePosition(Position{
		ObligationTotal:    decimal.NewFromInt(600_000),
		ContributionsTotal: decimal.NewFromInt(600_000),
	})
	require.True(t, pos.NetPosition.IsZero())
	require.True(t, pos.Outstanding.IsZero())
	require.True(t, pos.CreditBalance.IsZero())

	pos = derivePosition(Position{
		ObligationTotal:    decimal.NewFromInt(600_000),
		ContributionsTotal: decimal.NewFromInt(400_000),
	})
	require.True(t, pos.NetPosition.Equal(decimal.NewFromInt(-200_000)))
	require.True(t, pos.Outstanding.Equal(decimal.NewFromInt(200_000)))
	require.True(t, pos.CreditBalance.IsZero())

	pos = derivePosition(Position{
		ObligationTotal:    decimal.NewFromInt(600_000),
		ContributionsTotal: decimal.NewFromInt(700_000),
	})
	require.True(t, pos.NetPosition.Equal(decimal.NewFromInt(100_000)))
	require.True(t, pos.Outstanding.IsZero())
	require.True(t, pos.CreditBalance.Equal(decimal.NewFromInt(100_000)))
}
