package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/busanokirby/jc-web-v2/internal/catalog"
	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// TxRepository is the transactional surface the ledger mutates through.
// Sales and repairs embed it in their own transaction repositories so a
// checkout or part issue commits atomically with its movements.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (catalog.Product, error)
	SetOnHand(ctx context.Context, productID, onHand int64) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	ListMovementsByRef(ctx context.Context, refType ReferenceType, refID int64) ([]Movement, error)
}

// In increments on-hand and appends an IN movement with a MANUAL
// reference. Rejected for service products and non-positive quantities.
func In(ctx context.Context, tx TxRepository, productID, qty int64, notes string) (Movement, error) {
	if qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return Movement{}, err
	}
	if product.IsService {
		return Movement{}, ErrServiceItem
	}
	m := Movement{
		ProductID:     productID,
		Type:          MovementIn,
		Qty:           qty,
		ReferenceType: RefManual,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	}
	return commit(ctx, tx, product, m)
}

// Out decrements on-hand and appends an OUT movement. Strict: never
// drives on-hand negative. A no-op, not an error, for service products.
func Out(ctx context.Context, tx TxRepository, productID, qty int64, refType ReferenceType, refID int64, notes string) (Movement, error) {
	if qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return Movement{}, err
	}
	if product.IsService {
		return Movement{}, nil
	}
	if qty > product.OnHand {
		return Movement{}, fmt.Errorf("%w: %s has %d on hand, need %d", shared.ErrInsufficientStock, product.Name, product.OnHand, qty)
	}
	m := Movement{
		ProductID:     productID,
		Type:          MovementOut,
		Qty:           qty,
		ReferenceType: refType,
		ReferenceID:   refID,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	}
	return commit(ctx, tx, product, m)
}

// Adjust applies a signed delta and appends an ADJUST movement recording
// the absolute magnitude. Rejected when it would drive on-hand negative.
func Adjust(ctx context.Context, tx TxRepository, productID, delta int64, notes string) (Movement, error) {
	if delta == 0 {
		return Movement{}, ErrZeroDelta
	}
	product, err := tx.GetProductForUpdate(ctx, productID)
	if err != nil {
		return Movement{}, err
	}
	if product.IsService {
		return Movement{}, ErrServiceItem
	}
	if product.OnHand+delta < 0 {
		return Movement{}, fmt.Errorf("%w: %s has %d on hand, cannot reduce by %d", shared.ErrInsufficientStock, product.Name, product.OnHand, -delta)
	}
	qty := delta
	negative := false
	if qty < 0 {
		qty = -qty
		negative = true
	}
	m := Movement{
		ProductID:     productID,
		Type:          MovementAdjust,
		Qty:           qty,
		Negative:      negative,
		ReferenceType: RefManual,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
	}
	return commit(ctx, tx, product, m)
}

// ReverseConsumption re-issues a compensating IN movement for every unit
// an erased sale or repair consumed. Deleting a transaction never edits
// on-hand directly.
func ReverseConsumption(ctx context.Context, tx TxRepository, refType ReferenceType, refID int64, note string) ([]Movement, error) {
	consumed, err := tx.ListMovementsByRef(ctx, refType, refID)
	if err != nil {
		return nil, err
	}
	var reversals []Movement
	for _, out := range consumed {
		if out.Type != MovementOut {
			continue
		}
		product, err := tx.GetProductForUpdate(ctx, out.ProductID)
		if err != nil {
			return nil, err
		}
		m := Movement{
			ProductID:     out.ProductID,
			Type:          MovementIn,
			Qty:           out.Qty,
			ReferenceType: refType,
			ReferenceID:   refID,
			Notes:         note,
			CreatedAt:     time.Now().UTC(),
		}
		m, err = commit(ctx, tx, product, m)
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, m)
	}
	return reversals, nil
}

func commit(ctx context.Context, tx TxRepository, product catalog.Product, m Movement) (Movement, error) {
	id, err := tx.InsertMovement(ctx, m)
	if err != nil {
		return Movement{}, err
	}
	m.ID = id
	if err := tx.SetOnHand(ctx, product.ID, product.OnHand+m.Signed()); err != nil {
		return Movement{}, err
	}
	return m, nil
}
