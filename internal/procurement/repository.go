package procurement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/artha-erp/artha-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the write operations that must share a transaction.
// PO header and items commit or roll back together; there is no
// compensating delete.
type TxRepository interface {
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOItem(ctx context.Context, item POItem) error
	UpdatePOStatus(ctx context.Context, id int64, status POStatus) error
	CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error)
	InsertGRNLine(ctx context.Context, line GRNLine) error
	UpdateGRNStatus(ctx context.Context, id int64, status GRNStatus) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const poColumns = `id, po_number, vendor_id, status, po_date, delivery_date, is_tax_included, tax_percent, payment_term, term_days, due_date_override, note, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.VendorID, &po.Status, &po.PODate, &po.DeliveryDate,
		&po.IsTaxIncluded, &po.TaxPercent, &po.PaymentTerm, &po.TermDays, &po.DueDateOverride,
		&po.Note, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, err
}

// GetPO returns a purchase order and its lines.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, []POItem, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, po_id, description, qty, unit_price FROM purchase_order_items WHERE po_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	defer rows.Close()

	var items []POItem
	for rows.Next() {
		var it POItem
		if err := rows.Scan(&it.ID, &it.POID, &it.Description, &it.Qty, &it.UnitPrice); err != nil {
			return PurchaseOrder{}, nil, err
		}
		items = append(items, it)
	}
	return po, items, rows.Err()
}

// POFilters narrows the PO listing.
type POFilters struct {
	VendorID int64
	Status   POStatus
	Search   string
	Page     int
	Limit    int
}

// ListPOs returns purchase orders matching the filters, newest first.
func (r *Repository) ListPOs(ctx context.Context, f POFilters) ([]PurchaseOrder, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if f.VendorID > 0 {
		argCount++
		where += ` AND vendor_id = $` + strconv.Itoa(argCount)
		args = append(args, f.VendorID)
	}
	if f.Status != "" {
		argCount++
		where += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, f.Status)
	}
	if f.Search != "" {
		argCount++
		where += ` AND po_number ILIKE $` + strconv.Itoa(argCount)
		args = append(args, "%"+f.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + poColumns + ` FROM purchase_orders` + where + ` ORDER BY po_date DESC, id DESC`
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

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var pos []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		pos = append(pos, po)
	}
	return pos, total, rows.Err()
}

// GetGRN returns a goods receipt and its lines.
func (r *Repository) GetGRN(ctx context.Context, id int64) (GoodsReceipt, []GRNLine, error) {
	var grn GoodsReceipt
	err := r.pool.QueryRow(ctx,
		`SELECT id, grn_number, po_id, status, received_at, note FROM goods_receipts WHERE id = $1`, id).
		Scan(&grn.ID, &grn.Number, &grn.POID, &grn.Status, &grn.ReceivedAt, &grn.Note)
	if errors.Is(err, pgx.ErrNoRows) {
		return GoodsReceipt{}, nil, ErrNotFound
	}
	if err != nil {
		return GoodsReceipt{}, nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, grn_id, po_item_id, qty_received, note FROM goods_receipt_lines WHERE grn_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return GoodsReceipt{}, nil, err
	}
	defer rows.Close()

	var lines []GRNLine
	for rows.Next() {
		var l GRNLine
		if err := rows.Scan(&l.ID, &l.GRNID, &l.POItemID, &l.QtyReceived, &l.Note); err != nil {
			return GoodsReceipt{}, nil, err
		}
		lines = append(lines, l)
	}
	return grn, lines, rows.Err()
}

// ListGRNsForPO returns receipts against a purchase order.
func (r *Repository) ListGRNsForPO(ctx context.Context, poID int64) ([]GoodsReceipt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, grn_number, po_id, status, received_at, note FROM goods_receipts WHERE po_id = $1 ORDER BY received_at ASC`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GoodsReceipt
	for rows.Next() {
		var grn GoodsReceipt
		if err := rows.Scan(&grn.ID, &grn.Number, &grn.POID, &grn.Status, &grn.ReceivedAt, &grn.Note); err != nil {
			return nil, err
		}
		out = append(out, grn)
	}
	return out, rows.Err()
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	now := time.Now()
	err := t.tx.QueryRow(ctx,
		`INSERT INTO purchase_orders (po_number, vendor_id, status, po_date, delivery_date, is_tax_included, tax_percent, payment_term, term_days, due_date_override, note, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		po.Number, po.VendorID, po.Status, po.PODate, po.DeliveryDate, po.IsTaxIncluded, po.TaxPercent,
		po.PaymentTerm, po.TermDays, po.DueDateOverride, po.Note, now).Scan(&id)
	if err != nil {
		if platformdb.IsUniqueViolation(err) {
			return 0, ErrDuplicateNumber
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertPOItem(ctx context.Context, item POItem) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO purchase_order_items (po_id, description, qty, unit_price) VALUES ($1, $2, $3, $4)`,
		item.POID, item.Description, item.Qty, item.UnitPrice)
	return err
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) CreateGRN(ctx context.Context, grn GoodsReceipt) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO goods_receipts (grn_number, po_id, status, received_at, note) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		grn.Number, grn.POID, grn.Status, grn.ReceivedAt, grn.Note).Scan(&id)
	if err != nil {
		if platformdb.IsUniqueViolation(err) {
			return 0, ErrDuplicateNumber
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertGRNLine(ctx context.Context, line GRNLine) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO goods_receipt_lines (grn_id, po_item_id, qty_received, note) VALUES ($1, $2, $3, $4)`,
		line.GRNID, line.POItemID, line.QtyReceived, line.Note)
	return err
}

func (t *txRepo) UpdateGRNStatus(ctx context.Context, id int64, status GRNStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE goods_receipts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
