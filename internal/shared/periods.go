package shared

import (
	"errors"
	"fmt"
	"time"
)

// Month is a calendar month in "YYYY-MM" form. Allocation rows and capital
// plans are keyed by month, never by full timestamps.
type Month struct {
	Year int
	Mon  time.Month
}

// ErrInvalidMonth indicates a period string that is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// ParseMonth parses a YYYY-MM period string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

// MonthOf truncates a timestamp to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// String renders the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// Time returns midnight UTC on the first day of the month, the canonical
// value stored in month-keyed columns.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (m Month) Next() Month {
	t := m.Time().AddDate(0, 1, 0)
	return MonthOf(t)
}

// Before reports whether m precedes other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Mon < other.Mon
}

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool {
	return m.Year == 0
}

// Capital injection plan statuses. Transitions run forward only.
const (
	PlanStatusDraft  = "DRAFT"
	PlanStatusActive = "ACTIVE"
	PlanStatusClosed = "CLOSED"
)

// ErrInvalidPlanTransition indicates a status change not allowed.
var ErrInvalidPlanTransition = errors.New("plan transition invalid")

// ValidatePlanTransition checks draft->active->closed ordering.
func ValidatePlanTransition(current, target string) error {
	if current == target {
		return nil
	}
	switch current {
	case PlanStatusDraft:
		if target == PlanStatusActive {
			return nil
		}
	case PlanStatusActive:
		if target == PlanStatusClosed {
			return nil
		}
	}
	return ErrInvalidPlanTransition
}
