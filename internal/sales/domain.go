// Package sales implements the retail sale transaction family: the sale
// aggregate, its line items, and its append-only payment ledger. Status
// is always re-derived from the persisted payment sum, never mutated
// incrementally.
package sales

import (
	"time"

	"github.com/busanokirby/jc-web-v2/internal/money"
)

// SaleStatus enumerates sale lifecycle states.
type SaleStatus string

const (
	// StatusDraft marks a sale created but not yet checked out.
	StatusDraft SaleStatus = "DRAFT"
	// StatusPartial marks a sale with an outstanding balance.
	StatusPartial SaleStatus = "PARTIAL"
	// StatusPaid marks a fully settled sale. Terminal.
	StatusPaid SaleStatus = "PAID"
	// StatusVoid marks a cancelled sale. Terminal.
	StatusVoid SaleStatus = "VOID"
)

// Open reports whether the sale still accepts payments.
func (s SaleStatus) Open() bool {
	return s == StatusPartial || s == StatusPaid
}

// Sale is the aggregate root of a retail transaction.
type Sale struct {
	ID              int64       `json:"id"`
	InvoiceNo       string      `json:"invoice_no"`
	CustomerID      int64       `json:"customer_id,omitempty"`
	Status          SaleStatus  `json:"status"`
	ClaimedOnCredit bool        `json:"claimed_on_credit"`
	Subtotal        money.Money `json:"subtotal"`
	Discount        money.Money `json:"discount"`
	Tax             money.Money `json:"tax"`
	Total           money.Money `json:"total"`
	CreatedAt       time.Time   `json:"created_at"`

	Items    []SaleItem    `json:"items,omitempty"`
	Payments []SalePayment `json:"payments,omitempty"`
}

// SaleItem is one cart line.
type SaleItem struct {
	ID        int64       `json:"id"`
	SaleID    int64       `json:"sale_id"`
	ProductID int64       `json:"product_id"`
	Qty       int64       `json:"qty"`
	UnitPrice money.Money `json:"unit_price"`
	LineTotal money.Money `json:"line_total"`
}

// SalePayment is one append-only ledger row. PaidAt is the moment money
// actually changed hands, which can differ from the sale's CreatedAt.
type SalePayment struct {
	ID        int64       `json:"id"`
	SaleID    int64       `json:"sale_id"`
	Amount    money.Money `json:"amount"`
	Method    string      `json:"method"`
	PaidAt    time.Time   `json:"paid_at"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// PaymentReceipt reports what was actually persisted after capping.
// Excess is the slice of the submitted amount that was not recorded.
type PaymentReceipt struct {
	Payment  SalePayment `json:"payment"`
	Accepted money.Money `json:"accepted"`
	Excess   money.Money `json:"excess"`
	Status   SaleStatus  `json:"status"`
}

// PaymentsTotal sums the ledger.
func PaymentsTotal(payments []SalePayment) money.Money {
	total := money.Zero()
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// DeriveStatus recomputes the payment status from the ledger sum. Void
// and Draft are never derived here; they are explicit transitions.
func DeriveStatus(total, received money.Money) SaleStatus {
	if total.IsPositive() && !received.LessThan(total) {
		return StatusPaid
	}
	return StatusPartial
}
