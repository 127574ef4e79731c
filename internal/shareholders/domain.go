package shareholders

import (
	"errors"
	"time"
)

// Shareholder owns a slice of the company and funds RAB allocations.
type Shareholder struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	OwnershipPercent float64   `json:"ownership_percent"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Summary is the list read model. GapTo100 reports how far the combined
// ownership of active shareholders drifts from 100 percent; it is advisory
// and never blocks a write.
type Summary struct {
	Items    []Shareholder `json:"shareholders"`
	GapTo100 float64       `json:"gap_to_100"`
}

var (
	ErrInvalidPercent = errors.New("ownership percent must be between 0 and 100")
	ErrNameRequired   = errors.New("shareholder name is required")
)

func (s Shareholder) validate() error {
	if s.Name == "" {
		return ErrNameRequired
	}
	if s.OwnershipPercent < 0 || s.OwnershipPercent > 100 {
		return ErrInvalidPercent
	}
	return nil
}
