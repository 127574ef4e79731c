package expenses

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Filters narrows the expense listing.
type Filters struct {
	Source        Source
	Status        Status
	ShareholderID int64
	From          time.Time
	To            time.Time
	Page          int
	Limit         int
}

// Repository defines expense persistence.
type Repository interface {
	List(ctx context.Context, f Filters) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, id int64, e Expense) error
	SetStatus(ctx context.Context, id int64, status Status, voidReason string, voidedAt *time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const expenseColumns = `id, source, shareholder_id, account_id, cashbox_id, amount, status, spent_at, description, void_reason, voided_at, created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	var voidReason *string
	err := row.Scan(&e.ID, &e.Source, &e.ShareholderID, &e.AccountID, &e.CashboxID, &e.Amount,
		&e.Status, &e.SpentAt, &e.Description, &voidReason, &e.VoidedAt, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	if voidReason != nil {
		e.VoidReason = *voidReason
	}
	return e, err
}

func (r *repository) List(ctx context.Context, f Filters) ([]Expense, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if f.Source != "" {
		argCount++
		where += ` AND source = $` + strconv.Itoa(argCount)
		args = append(args, f.Source)
	}
	if f.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, f.Status)
	}
	if f.ShareholderID > 0 {
		argCount++
		where += ` AND shareholder_id = $` + strconv.Itoa(argCount)
		args = append(args, f.ShareholderID)
	}
	if !f.From.IsZero() {
		argCount++
		where += ` AND spent_at >= $` + strconv.Itoa(argCount)
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		argCount++
		where += ` AND spent_at < $` + strconv.Itoa(argCount)
		args = append(args, f.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses` + where + ` ORDER BY spent_at DESC, id DESC`
	if f.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, f.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (f.Page - 1) * f.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	return scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO expenses (source, shareholder_id, account_id, cashbox_id, amount, status, spent_at, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		e.Source, e.ShareholderID, e.AccountID, e.CashboxID, e.Amount, e.Status, e.SpentAt, e.Description, now).Scan(&e.ID)
	if err != nil {
		return Expense{}, err
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return e, nil
}

func (r *repository) Update(ctx context.Context, id int64, e Expense) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE expenses SET source = $1, shareholder_id = $2, account_id = $3, cashbox_id = $4, amount = $5, spent_at = $6, description = $7, updated_at = $8 WHERE id = $9`,
		e.Source, e.ShareholderID, e.AccountID, e.CashboxID, e.Amount, e.SpentAt, e.Description, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status, voidReason string, voidedAt *time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE expenses SET status = $1, void_reason = NULLIF($2, ''), voided_at = $3, updated_at = $4 WHERE id = $5`,
		status, voidReason, voidedAt, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
