package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BnB-Initivatives/stox-prod-test/internal/platform/db"
)

// TxRepository exposes the writes and reads used inside one unit of work.
type TxRepository interface {
	InsertCheckout(ctx context.Context, header Checkout) (Checkout, error)
	InsertCheckoutLine(ctx context.Context, line CheckoutLine) (CheckoutLine, error)
	GetCheckout(ctx context.Context, id int64) (Checkout, error)
	InsertReceipt(ctx context.Context, header Receipt) (Receipt, error)
	InsertReceiptLine(ctx context.Context, line ReceiptLine) (ReceiptLine, error)
	GetReceipt(ctx context.Context, id int64) (Receipt, error)
	LockItems(ctx context.Context, itemIDs []int64) error
	ApplyStockDelta(ctx context.Context, itemID int64, delta int) (StockLevel, error)
	GetStockLevel(ctx context.Context, itemID int64) (StockLevel, error)
	InsertLog(ctx context.Context, entry LogEntry) (LogEntry, error)
	LoggedLineIDs(ctx context.Context, kind Kind, headerID int64) (map[int64]bool, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a read-committed transaction. Stock
// updates rely on read committed re-checking their WHERE clause against the
// latest committed row after a lock wait. A deadlock or serialization abort
// is reported as ErrConcurrentUpdate.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	return mapTxErr(err)
}

func mapTxErr(err error) error {
	if err != nil && db.IsRetryable(err) {
		return fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
	}
	return err
}

const (
	checkoutColumns     = `transaction_id, employee_id, department_id, total_items, created_at, COALESCE(updated_at, created_at)`
	checkoutLineColumns = `checkout_item_id, transaction_id, line_number, item_id, category_id, unit_of_measure_id, quantity`
	receiptColumns      = `scan_id, invoice_number, vendor_id, scanned_by, COALESCE(image_file_path, ''), total_items, created_at, COALESCE(updated_at, created_at)`
	receiptLineColumns  = `scanned_invoice_item_id, scan_id, line_number, item_id, item_code, quantity`
	logColumns          = `log_id, item_id, old_quantity, new_quantity, quantity_changed, adjustment_type, adjusted_at, checkout_item_id, scanned_invoice_item_id, COALESCE(note, '')`
	stockColumns        = `item_id, item_code, name, quantity, low_stock_threshold`
)

func scanCheckout(row pgx.Row) (Checkout, error) {
	var c Checkout
	err := row.Scan(&c.ID, &c.EmployeeID, &c.DepartmentID, &c.TotalItems, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanCheckoutLine(row pgx.Row) (CheckoutLine, error) {
	var l CheckoutLine
	err := row.Scan(&l.ID, &l.TransactionID, &l.LineNumber, &l.ItemID, &l.CategoryID, &l.UnitOfMeasureID, &l.Quantity)
	return l, err
}

func scanReceipt(row pgx.Row) (Receipt, error) {
	var r Receipt
	err := row.Scan(&r.ID, &r.InvoiceNumber, &r.VendorID, &r.ScannedBy, &r.ImageFilePath, &r.TotalItems, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func scanReceiptLine(row pgx.Row) (ReceiptLine, error) {
	var l ReceiptLine
	err := row.Scan(&l.ID, &l.ScanID, &l.LineNumber, &l.ItemID, &l.ItemCode, &l.Quantity)
	return l, err
}

func scanLog(row pgx.Row) (LogEntry, error) {
	var e LogEntry
	var typ string
	err := row.Scan(&e.ID, &e.ItemID, &e.OldQuantity, &e.NewQuantity, &e.QuantityChanged, &typ, &e.AdjustedAt,
		&e.CheckoutItemID, &e.ScannedInvoiceItemID, &e.Note)
	e.AdjustmentType = AdjustmentType(typ)
	return e, err
}

func scanStock(row pgx.Row) (StockLevel, error) {
	var s StockLevel
	err := row.Scan(&s.ItemID, &s.ItemCode, &s.Name, &s.Quantity, &s.LowStockThreshold)
	return s, err
}

func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) { return scan(row) })
}

func loadCheckout(ctx context.Context, q querier, id int64) (Checkout, error) {
	c, err := scanCheckout(q.QueryRow(ctx, `SELECT `+checkoutColumns+` FROM checkout_transactions WHERE transaction_id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Checkout{}, fmt.Errorf("%w: checkout transaction %d", ErrNotFound, id)
		}
		return Checkout{}, err
	}
	rows, err := q.Query(ctx, `SELECT `+checkoutLineColumns+` FROM checkout_items WHERE transaction_id = $1 ORDER BY line_number`, id)
	c.Lines, err = collect(rows, err, scanCheckoutLine)
	return c, err
}

func loadReceipt(ctx context.Context, q querier, id int64) (Receipt, error) {
	r, err := scanReceipt(q.QueryRow(ctx, `SELECT `+receiptColumns+` FROM scanned_invoices WHERE scan_id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Receipt{}, fmt.Errorf("%w: scanned invoice %d", ErrNotFound, id)
		}
		return Receipt{}, err
	}
	rows, err := q.Query(ctx, `SELECT `+receiptLineColumns+` FROM scanned_invoice_items WHERE scan_id = $1 ORDER BY line_number`, id)
	r.Lines, err = collect(rows, err, scanReceiptLine)
	return r, err
}

// GetCheckout returns the header with its lines ordered by line number.
func (r *Repository) GetCheckout(ctx context.Context, id int64) (Checkout, error) {
	return loadCheckout(ctx, r.pool, id)
}

// ListCheckouts returns every checkout, newest first, with lines attached.
func (r *Repository) ListCheckouts(ctx context.Context) ([]Checkout, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+checkoutColumns+` FROM checkout_transactions ORDER BY transaction_id DESC`)
	headers, err := collect(rows, err, scanCheckout)
	if err != nil || len(headers) == 0 {
		return headers, err
	}
	rows, err = r.pool.Query(ctx, `SELECT `+checkoutLineColumns+` FROM checkout_items ORDER BY transaction_id, line_number`)
	lines, err := collect(rows, err, scanCheckoutLine)
	if err != nil {
		return nil, err
	}
	byHeader := make(map[int64][]CheckoutLine, len(headers))
	for _, l := range lines {
		byHeader[l.TransactionID] = append(byHeader[l.TransactionID], l)
	}
	for i := range headers {
		headers[i].Lines = byHeader[headers[i].ID]
	}
	return headers, nil
}

func (r *Repository) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	return loadReceipt(ctx, r.pool, id)
}

func (r *Repository) ListReceipts(ctx context.Context) ([]Receipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+receiptColumns+` FROM scanned_invoices ORDER BY scan_id DESC`)
	headers, err := collect(rows, err, scanReceipt)
	if err != nil || len(headers) == 0 {
		return headers, err
	}
	rows, err = r.pool.Query(ctx, `SELECT `+receiptLineColumns+` FROM scanned_invoice_items ORDER BY scan_id, line_number`)
	lines, err := collect(rows, err, scanReceiptLine)
	if err != nil {
		return nil, err
	}
	byHeader := make(map[int64][]ReceiptLine, len(headers))
	for _, l := range lines {
		byHeader[l.ScanID] = append(byHeader[l.ScanID], l)
	}
	for i := range headers {
		headers[i].Lines = byHeader[headers[i].ID]
	}
	return headers, nil
}

func (r *Repository) GetAdjustmentLog(ctx context.Context, id int64) (LogEntry, error) {
	e, err := scanLog(r.pool.QueryRow(ctx, `SELECT `+logColumns+` FROM inventory_adjustment_logs WHERE log_id = $1`, id))
	if db.IsNoRows(err) {
		return LogEntry{}, fmt.Errorf("%w: adjustment log %d", ErrNotFound, id)
	}
	return e, err
}

// ListAdjustmentLogs returns entries newest first.
func (r *Repository) ListAdjustmentLogs(ctx context.Context, filter LogFilter) ([]LogEntry, error) {
	var where []string
	var args []any
	if filter.ItemID > 0 {
		args = append(args, filter.ItemID)
		where = append(where, fmt.Sprintf("item_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("adjustment_type = $%d", len(args)))
	}
	query := `SELECT ` + logColumns + ` FROM inventory_adjustment_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY log_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	return collect(rows, err, scanLog)
}

func (r *Repository) ListLowStock(ctx context.Context) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+stockColumns+` FROM items WHERE quantity < low_stock_threshold ORDER BY item_id`)
	return collect(rows, err, scanStock)
}

func (t *txRepo) InsertCheckout(ctx context.Context, h Checkout) (Checkout, error) {
	return scanCheckout(t.tx.QueryRow(ctx, `INSERT INTO checkout_transactions (employee_id, department_id, total_items)
VALUES ($1, $2, $3) RETURNING `+checkoutColumns, h.EmployeeID, h.DepartmentID, h.TotalItems))
}

func (t *txRepo) InsertCheckoutLine(ctx context.Context, l CheckoutLine) (CheckoutLine, error) {
	return scanCheckoutLine(t.tx.QueryRow(ctx, `INSERT INTO checkout_items (transaction_id, line_number, item_id, category_id, unit_of_measure_id, quantity)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+checkoutLineColumns,
		l.TransactionID, l.LineNumber, l.ItemID, l.CategoryID, l.UnitOfMeasureID, l.Quantity))
}

func (t *txRepo) GetCheckout(ctx context.Context, id int64) (Checkout, error) {
	return loadCheckout(ctx, t.tx, id)
}

func (t *txRepo) InsertReceipt(ctx context.Context, h Receipt) (Receipt, error) {
	return scanReceipt(t.tx.QueryRow(ctx, `INSERT INTO scanned_invoices (invoice_number, vendor_id, scanned_by, image_file_path, total_items)
VALUES ($1, $2, $3, NULLIF($4, ''), $5) RETURNING `+receiptColumns,
		h.InvoiceNumber, h.VendorID, h.ScannedBy, h.ImageFilePath, h.TotalItems))
}

func (t *txRepo) InsertReceiptLine(ctx context.Context, l ReceiptLine) (ReceiptLine, error) {
	return scanReceiptLine(t.tx.QueryRow(ctx, `INSERT INTO scanned_invoice_items (scan_id, line_number, item_id, item_code, quantity)
VALUES ($1, $2, $3, $4, $5) RETURNING `+receiptLineColumns,
		l.ScanID, l.LineNumber, l.ItemID, l.ItemCode, l.Quantity))
}

func (t *txRepo) GetReceipt(ctx context.Context, id int64) (Receipt, error) {
	return loadReceipt(ctx, t.tx, id)
}

// LockItems takes row locks on itemIDs in ascending item_id order, so two
// units of work touching the same items always queue instead of deadlocking.
func (t *txRepo) LockItems(ctx context.Context, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	rows, err := t.tx.Query(ctx, `SELECT item_id FROM items WHERE item_id = ANY($1) ORDER BY item_id FOR UPDATE`, itemIDs)
	if err != nil {
		return err
	}
	rows.Close()
	return rows.Err()
}

// ApplyStockDelta is the compare-and-set: the row is only written when the
// result stays non-negative, evaluated against the locked current row.
func (t *txRepo) ApplyStockDelta(ctx context.Context, itemID int64, delta int) (StockLevel, error) {
	level, err := scanStock(t.tx.QueryRow(ctx, `UPDATE items SET quantity = quantity + $2, updated_at = NOW()
WHERE item_id = $1 AND quantity + $2 >= 0 RETURNING `+stockColumns, itemID, delta))
	if db.IsNoRows(err) {
		return StockLevel{}, errStockGuard
	}
	return level, err
}

func (t *txRepo) GetStockLevel(ctx context.Context, itemID int64) (StockLevel, error) {
	level, err := scanStock(t.tx.QueryRow(ctx, `SELECT `+stockColumns+` FROM items WHERE item_id = $1`, itemID))
	if db.IsNoRows(err) {
		return StockLevel{}, fmt.Errorf("%w: item %d", ErrNotFound, itemID)
	}
	return level, err
}

func (t *txRepo) InsertLog(ctx context.Context, e LogEntry) (LogEntry, error) {
	saved, err := scanLog(t.tx.QueryRow(ctx, `INSERT INTO inventory_adjustment_logs
(item_id, old_quantity, new_quantity, quantity_changed, adjustment_type, adjusted_at, checkout_item_id, scanned_invoice_item_id, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')) RETURNING `+logColumns,
		e.ItemID, e.OldQuantity, e.NewQuantity, e.QuantityChanged, string(e.AdjustmentType), e.AdjustedAt,
		e.CheckoutItemID, e.ScannedInvoiceItemID, e.Note))
	if db.IsUniqueViolation(err, "") {
		return LogEntry{}, fmt.Errorf("%w: %v", ErrAdjustmentRecorded, err)
	}
	return saved, err
}

func (t *txRepo) LoggedLineIDs(ctx context.Context, kind Kind, headerID int64) (map[int64]bool, error) {
	var query string
	switch kind {
	case KindCheckout:
		query = `SELECT l.checkout_item_id FROM inventory_adjustment_logs l
JOIN checkout_items ci ON ci.checkout_item_id = l.checkout_item_id WHERE ci.transaction_id = $1`
	case KindReceipt:
		query = `SELECT l.scanned_invoice_item_id FROM inventory_adjustment_logs l
JOIN scanned_invoice_items si ON si.scanned_invoice_item_id = l.scanned_invoice_item_id WHERE si.scan_id = $1`
	default:
		return nil, errors.New("inventory: unknown transaction kind " + string(kind))
	}
	rows, err := t.tx.Query(ctx, query, headerID)
	ids, err := collect(rows, err, func(row pgx.Row) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
