package repairs

import (
	"fmt"

	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// Funding abstracts how a repair's received money is stored. Older
// deployments keep one mutable deposit aggregate; newer ones keep an
// append-only payment ledger. Recompute consumes only this capability
// and never branches on which model is active.
type Funding interface {
	TotalReceived() money.Money
}

// ScalarFunding reads the legacy deposit_paid aggregate.
type ScalarFunding struct {
	Deposit money.Money
}

// TotalReceived returns the stored deposit.
func (f ScalarFunding) TotalReceived() money.Money {
	return f.Deposit
}

// LedgerFunding sums an append-only payment ledger.
type LedgerFunding struct {
	Payments []RepairPayment
}

// TotalReceived returns the ledger sum.
func (f LedgerFunding) TotalReceived() money.Money {
	total := money.Zero()
	for _, p := range f.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// FundingFor picks the ledger when payment rows exist, else the scalar
// deposit. Both produce identical derived results for the same money.
func FundingFor(r Repair) Funding {
	if len(r.Payments) > 0 {
		return LedgerFunding{Payments: r.Payments}
	}
	return ScalarFunding{Deposit: r.DepositPaid}
}

// Recompute re-derives total cost, balance due, and payment status from
// the repair's inputs and its funding. It is idempotent and re-runnable;
// callers invoke it after every fee change, part change, payment, waive,
// or revert.
//
// An invariant violation here is a logic defect, not a data-entry error,
// so it surfaces loudly instead of being clamped.
func Recompute(r *Repair, funding Funding) error {
	if r.ChargeWaived {
		r.TotalCost = money.Zero()
		r.BalanceDue = money.Zero()
		r.PaymentStatus = StatusPaid
		return nil
	}

	received := funding.TotalReceived()
	if received.IsNegative() {
		return fmt.Errorf("%w: repair %s received %s", shared.ErrInconsistentState, r.TicketNo, received.String())
	}
	r.DepositPaid = received
	r.TotalCost = money.Sum(r.DiagnosticFee, r.RepairCost, r.PartsCost)
	if r.TotalCost.IsNegative() {
		return fmt.Errorf("%w: repair %s total cost %s", shared.ErrInconsistentState, r.TicketNo, r.TotalCost.String())
	}
	r.BalanceDue = r.TotalCost.Sub(received).FloorZero()

	switch {
	case r.TotalCost.IsPositive() && r.BalanceDue.IsZero():
		r.PaymentStatus = StatusPaid
		r.ClaimedOnCredit = false
	case received.IsPositive():
		r.PaymentStatus = StatusPartial
	default:
		r.PaymentStatus = StatusPending
	}
	return nil
}
