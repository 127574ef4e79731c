package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/artha-erp/artha-erp/internal/platform/db"
)

// Repository persists PO-expense allocations and the paid aggregates.
type Repository interface {
	// InsertAllocation writes the link row in one transaction, verifying
	// both foreign keys inside the same statement set.
	InsertAllocation(ctx context.Context, a POExpenseAllocation) (POExpenseAllocation, error)
	ListAllocationsForPO(ctx context.Context, poID int64) ([]POExpenseAllocation, error)
	// SumPaidForPO totals allocation amounts whose expense is not void.
	SumPaidForPO(ctx context.Context, poID int64) (float64, error)
	// OpenPOIDs lists purchase orders that are not cancelled.
	OpenPOIDs(ctx context.Context) ([]int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) InsertAllocation(ctx context.Context, a POExpenseAllocation) (POExpenseAllocation, error) {
	now := time.Now()
	err := platformdb.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE id = $1)`, a.POID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1)`, a.ExpenseID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return tx.QueryRow(ctx,
			`INSERT INTO po_expense_allocations (po_id, expense_id, amount, note, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			a.POID, a.ExpenseID, a.Amount, a.Note, now).Scan(&a.ID)
	})
	if err != nil {
		return POExpenseAllocation{}, err
	}
	a.CreatedAt = now
	return a, nil
}

func (r *repository) ListAllocationsForPO(ctx context.Context, poID int64) ([]POExpenseAllocation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, po_id, expense_id, amount, note, created_at FROM po_expense_allocations WHERE po_id = $1 ORDER BY created_at ASC, id ASC`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []POExpenseAllocation
	for rows.Next() {
		var a POExpenseAllocation
		if err := rows.Scan(&a.ID, &a.POID, &a.ExpenseID, &a.Amount, &a.Note, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) SumPaidForPO(ctx context.Context, poID int64) (float64, error) {
	var sum float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(pea.amount), 0)
		 FROM po_expense_allocations pea
		 JOIN expenses e ON e.id = pea.expense_id
		 WHERE pea.po_id = $1 AND e.status <> 'VOID'`, poID).Scan(&sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return sum, err
}

func (r *repository) OpenPOIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM purchase_orders WHERE status <> 'CANCELLED' ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
