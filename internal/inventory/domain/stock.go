package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("stock record not found")
	ErrAlreadyStocked    = errors.New("product already stocked")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	// ErrVersionConflict means a concurrent writer won the compare-and-swap;
	// callers retry with a fresh read.
	ErrVersionConflict = errors.New("stock record version conflict")
	// ErrBelowReserved rejects on-hand adjustments that would undercut open holds.
	ErrBelowReserved = errors.New("on-hand cannot drop below reserved")
)

// StockRecord is the authoritative ledger row for one product: how many
// units are on hand and how many of those are held by open orders.
// Reserved moves only through Reserve and Release.
type StockRecord struct {
	ID        int64
	ProductID string
	OnHand    int
	Reserved  int
	Warehouse string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewStockRecord(productID string, onHand int, warehouse string) (StockRecord, error) {
	if productID == "" {
		return StockRecord{}, errors.New("product id is required")
	}
	if onHand < 0 {
		return StockRecord{}, ErrInvalidQuantity
	}
	now := time.Now().UTC()
	return StockRecord{
		ProductID: productID,
		OnHand:    onHand,
		Warehouse: warehouse,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Available is the sellable quantity: on hand minus held.
func (r *StockRecord) Available() int {
	return r.OnHand - r.Reserved
}

func (r *StockRecord) CanReserve(qty int) bool {
	return qty > 0 && r.Available() >= qty
}

// Reserve places a hold. The record is unchanged when it fails.
func (r *StockRecord) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if r.Available() < qty {
		return fmt.Errorf("product %s: %w", r.ProductID, ErrInsufficientStock)
	}
	r.Reserved += qty
	r.touch()
	return nil
}

// Release drops a hold, clamping at zero so compensations can be retried.
func (r *StockRecord) Release(qty int) {
	if qty <= 0 {
		return
	}
	r.Reserved = max(0, r.Reserved-qty)
	r.touch()
}

// SetOnHand is the administrative adjustment; it never touches Reserved.
func (r *StockRecord) SetOnHand(qty int) error {
	if qty < 0 {
		return ErrInvalidQuantity
	}
	if qty < r.Reserved {
		return fmt.Errorf("product %s: %w", r.ProductID, ErrBelowReserved)
	}
	r.OnHand = qty
	r.touch()
	return nil
}

func (r *StockRecord) touch() {
	r.UpdatedAt = time.Now().UTC()
}
