// Package repairs implements the device repair transaction family. A
// repair's total cost, balance due, and payment status are always
// derived fields, recomputed from fees, part lines, and the funding the
// ticket has actually received.
package repairs

import (
	"fmt"
	"time"

	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// PaymentStatus enumerates repair payment states.
type PaymentStatus string

const (
	// StatusPending marks a repair with no money received.
	StatusPending PaymentStatus = "Pending"
	// StatusPartial marks a repair with a deposit but an open balance.
	StatusPartial PaymentStatus = "Partial"
	// StatusPaid marks a fully settled or waived repair.
	StatusPaid PaymentStatus = "Paid"
)

// ErrWaived rejects payment against a waived repair. A waived ticket is
// a closed transaction, so callers matching on the closed sentinel still
// catch it.
var ErrWaived = fmt.Errorf("%w: charge is waived, no payment accepted", shared.ErrClosedTransaction)

// Repair is the aggregate root of one repair ticket.
type Repair struct {
	ID              int64         `json:"id"`
	TicketNo        string        `json:"ticket_no"`
	CustomerID      int64         `json:"customer_id,omitempty"`
	DeviceType      string        `json:"device_type"`
	Problem         string        `json:"problem,omitempty"`
	DiagnosticFee   money.Money   `json:"diagnostic_fee"`
	RepairCost      money.Money   `json:"repair_cost"`
	PartsCost       money.Money   `json:"parts_cost"`
	TotalCost       money.Money   `json:"total_cost"`
	DepositPaid     money.Money   `json:"deposit_paid"`
	BalanceDue      money.Money   `json:"balance_due"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	ClaimedOnCredit bool          `json:"claimed_on_credit"`
	ChargeWaived    bool          `json:"charge_waived"`
	Archived        bool          `json:"archived"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`

	Parts    []RepairPart    `json:"parts,omitempty"`
	Payments []RepairPayment `json:"payments,omitempty"`
}

// EditLocked reports whether part and fee edits are rejected. A paid
// ticket is locked until an administrative revert reopens it.
func (r Repair) EditLocked() bool {
	return r.PaymentStatus == StatusPaid && !r.ChargeWaived
}

// RepairPart is one consumed part line.
type RepairPart struct {
	ID        int64       `json:"id"`
	RepairID  int64       `json:"repair_id"`
	ProductID int64       `json:"product_id"`
	Qty       int64       `json:"qty"`
	UnitPrice money.Money `json:"unit_price"`
	LineTotal money.Money `json:"line_total"`
}

// RepairPayment is one append-only ledger row.
type RepairPayment struct {
	ID        int64       `json:"id"`
	RepairID  int64       `json:"repair_id"`
	Amount    money.Money `json:"amount"`
	Method    string      `json:"method"`
	PaidAt    time.Time   `json:"paid_at"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// PaymentReceipt reports what was persisted after capping.
type PaymentReceipt struct {
	Payment  RepairPayment `json:"payment"`
	Accepted money.Money   `json:"accepted"`
	Excess   money.Money   `json:"excess"`
	Status   PaymentStatus `json:"status"`
}

// PartsTotal sums the part lines.
func PartsTotal(parts []RepairPart) money.Money {
	total := money.Zero()
	for _, p := range parts {
		total = total.Add(p.LineTotal)
	}
	return total
}
