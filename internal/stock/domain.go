// Package stock implements the append-only movement log and the derived
// on-hand quantity per stocked product. Sales and repairs issue goods
// through it; reports read it. The on-hand counter must always equal the
// signed sum of recorded movements.
package stock

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement.
	MovementOut MovementType = "OUT"
	// MovementAdjust indicates manual adjustments.
	MovementAdjust MovementType = "ADJUST"
)

// ReferenceType names the transaction family that caused a movement.
type ReferenceType string

const (
	// RefSale ties a movement to a sale.
	RefSale ReferenceType = "SALE"
	// RefRepair ties a movement to a repair ticket.
	RefRepair ReferenceType = "REPAIR"
	// RefManual marks operator-initiated movements.
	RefManual ReferenceType = "MANUAL"
)

// Movement is one audit-trail row. Qty is always a positive magnitude;
// the direction comes from Type, except for ADJUST movements which carry
// an explicit Negative flag so the signed sum stays recoverable.
type Movement struct {
	ID            int64
	ProductID     int64
	Type          MovementType
	Qty           int64
	Negative      bool
	ReferenceType ReferenceType
	ReferenceID   int64
	Notes         string
	CreatedAt     time.Time
}

// Signed returns the movement's contribution to on-hand.
func (m Movement) Signed() int64 {
	switch m.Type {
	case MovementOut:
		return -m.Qty
	case MovementAdjust:
		if m.Negative {
			return -m.Qty
		}
	}
	return m.Qty
}

// ErrInvalidQuantity indicates a zero or negative quantity input.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrZeroDelta indicates an adjustment with no effect.
var ErrZeroDelta = errors.New("stock: delta must be non-zero")

// ErrServiceItem indicates a stock mutation against a service product.
var ErrServiceItem = errors.New("stock: service items carry no stock")
