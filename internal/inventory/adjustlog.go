package inventory

import (
	"context"
	"errors"
	"time"
)

// LogRef ties an adjustment to the line that caused it.
type LogRef struct {
	Type                 AdjustmentType
	CheckoutItemID       int64
	ScannedInvoiceItemID int64
	Note                 string
}

func (r LogRef) validate() error {
	switch r.Type {
	case AdjustmentCheckout:
		if r.CheckoutItemID <= 0 || r.ScannedInvoiceItemID != 0 {
			return validationf("checkout adjustment needs only checkout_item_id")
		}
	case AdjustmentReceipt:
		if r.ScannedInvoiceItemID <= 0 || r.CheckoutItemID != 0 {
			return validationf("receipt adjustment needs only scanned_invoice_item_id")
		}
	case AdjustmentManual:
		if r.CheckoutItemID != 0 || r.ScannedInvoiceItemID != 0 {
			return validationf("manual adjustment cannot reference a line")
		}
	default:
		return validationf("unknown adjustment type %q", r.Type)
	}
	return nil
}

// LogWriter appends adjustment log entries. Entries are never updated.
type LogWriter struct {
	tx  TxRepository
	now func() time.Time
}

// NewLogWriter binds a writer to tx.
func NewLogWriter(tx TxRepository, now func() time.Time) LogWriter {
	if now == nil {
		now = time.Now
	}
	return LogWriter{tx: tx, now: now}
}

// Record writes the entry for mv. A second entry for the same line returns
// ErrAdjustmentRecorded.
func (w LogWriter) Record(ctx context.Context, mv Movement, ref LogRef) (LogEntry, error) {
	if err := ref.validate(); err != nil {
		return LogEntry{}, err
	}
	entry := LogEntry{
		ItemID:          mv.ItemID,
		OldQuantity:     mv.Old,
		NewQuantity:     mv.New,
		QuantityChanged: mv.Changed(),
		AdjustmentType:  ref.Type,
		AdjustedAt:      w.now().UTC(),
		Note:            ref.Note,
	}
	if ref.CheckoutItemID != 0 {
		id := ref.CheckoutItemID
		entry.CheckoutItemID = &id
	}
	if ref.ScannedInvoiceItemID != 0 {
		id := ref.ScannedInvoiceItemID
		entry.ScannedInvoiceItemID = &id
	}
	saved, err := w.tx.InsertLog(ctx, entry)
	if err != nil {
		if errors.Is(err, ErrAdjustmentRecorded) {
			return LogEntry{}, err
		}
		return LogEntry{}, persistence("insert adjustment log", err)
	}
	return saved, nil
}
