package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artha-erp/artha-erp/internal/shared"
)

// Service resolves the effective role for a user.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs the RBAC service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// EffectiveRole returns the role stored for an active user.
func (s *Service) EffectiveRole(ctx context.Context, userID int64) (Role, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND is_active`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	r := Role(role)
	if !r.Valid() {
		return "", errors.New("rbac: unknown role " + role)
	}
	return r, nil
}
