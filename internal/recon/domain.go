// Package recon implements the read-side reconciliation aggregator:
// cash-basis revenue received, accrual-basis revenue invoiced, the
// payment-method breakdown, and the current outstanding balances. It
// never writes; reports are plain structured records for the export and
// email layers.
package recon

import (
	"time"

	"github.com/busanokirby/jc-web-v2/internal/money"
)

// Family names a transaction family in report rows.
type Family string

const (
	// FamilySales marks retail sale rows.
	FamilySales Family = "sales"
	// FamilyRepairs marks repair ticket rows.
	FamilyRepairs Family = "repairs"
)

// PaymentRow is one received payment joined to an open, non-credit
// parent. The repository guarantees the join resolved.
type PaymentRow struct {
	Family    Family      `json:"family"`
	Reference string      `json:"reference"`
	Amount    money.Money `json:"amount"`
	Method    string      `json:"method"`
	PaidAt    time.Time   `json:"paid_at"`
}

// InvoiceRow is one invoiced transaction: a sale by its creation date or
// a repair by its completion date.
type InvoiceRow struct {
	Family Family      `json:"family"`
	Total  money.Money `json:"total"`
	At     time.Time   `json:"at"`
}

// OutstandingSaleRow carries the fields needed to bucket one open sale.
type OutstandingSaleRow struct {
	Total    money.Money
	Received money.Money
	OnCredit bool
}

// OutstandingRepairRow carries the fields needed to bucket one open
// repair. BalanceDue is the stored derived field, trusted as-is.
type OutstandingRepairRow struct {
	TotalCost  money.Money
	BalanceDue money.Money
	Pending    bool
	Partial    bool
	OnCredit   bool
}

// RevenueReceived is the cash-basis result for a range.
type RevenueReceived struct {
	Sales   money.Money `json:"sales"`
	Repairs money.Money `json:"repairs"`
	Total   money.Money `json:"total"`
	Count   int         `json:"count"`
}

// RevenueInvoiced is the accrual-basis result for a range.
type RevenueInvoiced struct {
	Sales   money.Money `json:"sales"`
	Repairs money.Money `json:"repairs"`
	Total   money.Money `json:"total"`
}

// MethodTotal is one payment-method bucket. Sales and repairs
// contribute to the same bucket per label.
type MethodTotal struct {
	Method string      `json:"method"`
	Amount money.Money `json:"amount"`
	Count  int         `json:"count"`
}

// Outstanding is the current-state money owed, independent of any date
// range. Pending buckets hold transactions with zero payments; the
// balance-due buckets consolidate partials with payments and credit
// claims, both being money owed right now.
type Outstanding struct {
	PendingSales      money.Money `json:"pending_sales"`
	SalesBalanceDue   money.Money `json:"sales_balance_due"`
	PendingRepairs    money.Money `json:"pending_repairs"`
	RepairsBalanceDue money.Money `json:"repairs_balance_due"`
	Total             money.Money `json:"total"`
}

// Summary combines the four reports for one range.
type Summary struct {
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Received    RevenueReceived `json:"received"`
	Invoiced    RevenueInvoiced `json:"invoiced"`
	Methods     []MethodTotal   `json:"methods"`
	Outstanding Outstanding     `json:"outstanding"`
	GeneratedAt time.Time       `json:"generated_at"`
}
