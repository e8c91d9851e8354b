package inventory

import (
	"context"
	"errors"

	"github.com/BnB-Initivatives/stox-prod-test/internal/catalog"
)

// errStockGuard is returned by TxRepository.ApplyStockDelta when the guarded
// update matched no row: either the item is gone or stock would go negative.
var errStockGuard = errors.New("inventory: stock guard rejected update")

// Movement is the before and after of one applied stock delta.
type Movement struct {
	ItemID int64
	Delta  int
	Old    int
	New    int
	Level  StockLevel
}

// Changed is the absolute quantity moved.
func (m Movement) Changed() int {
	if m.Delta < 0 {
		return -m.Delta
	}
	return m.Delta
}

// Ledger applies quantity deltas to items inside a unit of work.
type Ledger struct {
	tx TxRepository
}

// NewLedger binds a ledger to tx.
func NewLedger(tx TxRepository) Ledger {
	return Ledger{tx: tx}
}

// Adjust adds delta to the item's current quantity as one conditional write,
// so the check and the update see the same row version. A result below zero
// is refused with *InsufficientStockError and leaves the row unchanged.
func (l Ledger) Adjust(ctx context.Context, itemID int64, delta int) (Movement, error) {
	if delta == 0 {
		return Movement{}, validationf("item %d: %v", itemID, errInvalidQuantity)
	}
	level, err := l.tx.ApplyStockDelta(ctx, itemID, delta)
	if err == nil {
		return Movement{ItemID: itemID, Delta: delta, Old: level.Quantity - delta, New: level.Quantity, Level: level}, nil
	}
	if !errors.Is(err, errStockGuard) {
		return Movement{}, persistence("apply stock delta", err)
	}

	current, err := l.tx.GetStockLevel(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Movement{}, &catalog.NotFoundError{Entity: catalog.EntityItem, Key: itemID}
		}
		return Movement{}, persistence("read stock level", err)
	}
	return Movement{}, &InsufficientStockError{
		ItemID:    itemID,
		ItemName:  current.Name,
		Available: current.Quantity,
		Requested: -delta,
	}
}
