package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	internalshared "github.com/artha-erp/artha-erp/internal/shared"
)

// Repository runs the aggregation queries the views project from. Every
// query reads base tables only, so a view can always be rebuilt from
// scratch; there is no maintained running total to drift.
type Repository interface {
	MonthlyExpenseGrid(ctx context.Context, from, to internalshared.Month) ([]ExpenseGridCell, error)
	AccountFlows(ctx context.Context) ([]AccountFlow, error)
	CashboxFlows(ctx context.Context) ([]CashboxFlow, error)
	ShareholderFlows(ctx context.Context) ([]ShareholderFlow, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) MonthlyExpenseGrid(ctx context.Context, from, to internalshared.Month) ([]ExpenseGridCell, error) {
	rows, err := r.db.Query(ctx,
		`SELECT to_char(date_trunc('month', spent_at), 'YYYY-MM') AS period, source, COALESCE(SUM(amount), 0)
		 FROM expenses
		 WHERE status = 'POSTED' AND spent_at >= $1 AND spent_at < $2
		 GROUP BY 1, 2
		 ORDER BY 1 ASC, 2 ASC`,
		from.Time(), to.Next().Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []ExpenseGridCell
	for rows.Next() {
		var c ExpenseGridCell
		if err := rows.Scan(&c.Period, &c.Source, &c.Total); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (r *repository) AccountFlows(ctx context.Context) ([]AccountFlow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT account_id, SUM(cash_in), SUM(cash_out) FROM (
			SELECT account_id, amount::float8 AS cash_in, 0::float8 AS cash_out
			FROM capital_contributions WHERE account_id IS NOT NULL
			UNION ALL
			SELECT account_id, 0::float8, amount
			FROM expenses WHERE status = 'POSTED' AND account_id IS NOT NULL
		 ) flows
		 GROUP BY account_id
		 ORDER BY account_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccountFlow
	for rows.Next() {
		var f AccountFlow
		if err := rows.Scan(&f.AccountID, &f.In, &f.Out); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) CashboxFlows(ctx context.Context) ([]CashboxFlow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT cashbox_id, COALESCE(SUM(amount), 0)
		 FROM expenses
		 WHERE status = 'POSTED' AND cashbox_id IS NOT NULL
		 GROUP BY cashbox_id
		 ORDER BY cashbox_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CashboxFlow
	for rows.Next() {
		var f CashboxFlow
		if err := rows.Scan(&f.CashboxID, &f.Out); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) ShareholderFlows(ctx context.Context) ([]ShareholderFlow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT shareholder_id, SUM(allocated), SUM(contributed), SUM(spent) FROM (
			SELECT shareholder_id, amount::float8 AS allocated, 0::float8 AS contributed, 0::float8 AS spent
			FROM rab_allocations
			UNION ALL
			SELECT shareholder_id, 0::float8, amount::float8, 0::float8
			FROM capital_contributions
			UNION ALL
			SELECT shareholder_id, 0::float8, 0::float8, amount
			FROM expenses WHERE status = 'POSTED' AND shareholder_id IS NOT NULL
		 ) flows
		 GROUP BY shareholder_id
		 ORDER BY shareholder_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShareholderFlow
	for rows.Next() {
		var f ShareholderFlow
		if err := rows.Scan(&f.ShareholderID, &f.Allocated, &f.Contributed, &f.Spent); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
