package shareholders

import (
	"context"
	"errors"
	"math"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns shareholders plus the advisory gap between the combined
// active ownership and 100 percent. The gap is reported, never enforced.
func (s *Service) List(ctx context.Context, activeOnly bool) (Summary, error) {
	items, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return Summary{}, err
	}
	if items == nil {
		items = []Shareholder{}
	}

	var activeTotal float64
	for _, sh := range items {
		if sh.IsActive {
			activeTotal += sh.OwnershipPercent
		}
	}
	gap := 100 - activeTotal
	// Drop float noise below a hundredth of a percent.
	gap = math.Round(gap*100) / 100

	return Summary{Items: items, GapTo100: gap}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Shareholder, error) {
	if id <= 0 {
		return Shareholder{}, errors.New("invalid shareholder ID")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, sh Shareholder) (Shareholder, error) {
	sh.Name = strings.TrimSpace(sh.Name)
	if err := sh.validate(); err != nil {
		return Shareholder{}, err
	}
	return s.repo.Create(ctx, sh)
}

func (s *Service) Update(ctx context.Context, id int64, sh Shareholder) error {
	if id <= 0 {
		return errors.New("invalid shareholder ID")
	}
	sh.Name = strings.TrimSpace(sh.Name)
	if err := sh.validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, sh)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid shareholder ID")
	}
	return s.repo.Delete(ctx, id)
}
