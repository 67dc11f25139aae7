package shared

import "errors"

// Financial error taxonomy. All of these are recoverable by the caller:
// the enclosing unit of work rolls back and the operator gets a message.
var (
	// ErrInvalidAmount indicates a non-positive or malformed payment amount.
	ErrInvalidAmount = errors.New("payment amount must be positive")
	// ErrClosedTransaction indicates a payment attempted on a void, draft
	// or charge-waived parent.
	ErrClosedTransaction = errors.New("transaction does not accept payments")
	// ErrOverpaymentRejected indicates the payment exceeds the tolerance
	// cap even after capping to the remaining balance.
	ErrOverpaymentRejected = errors.New("payment exceeds overpayment tolerance")
	// ErrInsufficientStock indicates a stock-out larger than on-hand.
	ErrInsufficientStock = errors.New("not enough stock on hand")
	// ErrOrphanedRecord indicates a payment whose parent no longer
	// resolves; surfaced by the integrity scan, never per write.
	ErrOrphanedRecord = errors.New("payment references a missing parent")
	// ErrEditLocked indicates a line or price mutation on a fully paid
	// repair without a prior revert.
	ErrEditLocked = errors.New("repair is paid; revert before editing")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// ErrInconsistentState is the one fatal condition: a recompute derived a
// state that violates its own invariants. It indicates a logic defect, not
// a data-entry error, and must never be clamped away.
var ErrInconsistentState = errors.New("derived financial state is inconsistent")
