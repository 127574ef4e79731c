package shareholders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// Repository defines shareholder persistence.
type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]Shareholder, error)
	Get(ctx context.Context, id int64) (Shareholder, error)
	Create(ctx context.Context, sh Shareholder) (Shareholder, error)
	Update(ctx context.Context, id int64, sh Shareholder) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const shareholderColumns = `id, name, email, phone, ownership_percent, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, activeOnly bool) ([]Shareholder, error) {
	query := `SELECT ` + shareholderColumns + ` FROM shareholders`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Shareholder
	for rows.Next() {
		var sh Shareholder
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Email, &sh.Phone, &sh.OwnershipPercent, &sh.IsActive, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Shareholder, error) {
	var sh Shareholder
	err := r.db.QueryRow(ctx, `SELECT `+shareholderColumns+` FROM shareholders WHERE id = $1`, id).
		Scan(&sh.ID, &sh.Name, &sh.Email, &sh.Phone, &sh.OwnershipPercent, &sh.IsActive, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shareholder{}, internalshared.ErrNotFound
	}
	return sh, err
}

func (r *repository) Create(ctx context.Context, sh Shareholder) (Shareholder, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO shareholders (name, email, phone, ownership_percent, is_active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		sh.Name, sh.Email, sh.Phone, sh.OwnershipPercent, sh.IsActive, now).Scan(&sh.ID)
	if err != nil {
		return Shareholder{}, err
	}
	sh.CreatedAt = now
	sh.UpdatedAt = now
	return sh, nil
}

func (r *repository) Update(ctx context.Context, id int64, sh Shareholder) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE shareholders SET name = $1, email = $2, phone = $3, ownership_percent = $4, is_active = $5, updated_at = $6 WHERE id = $7`,
		sh.Name, sh.Email, sh.Phone, sh.OwnershipPercent, sh.IsActive, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalshared.ErrNotFound
	}
	return nil
}

// Delete removes a shareholder. Reference data is hard-deleted; rows with
// contributions or allocations are protected by foreign keys.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shareholders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalshared.ErrNotFound
	}
	return nil
}
