// Package integrity implements the scheduled data-integrity scan over
// the payment ledgers and derived status fields. Findings are reported,
// never auto-corrected; removal of orphans requires the explicit
// administrative cleanup operation.
package integrity

import (
	"time"

	"github.com/google/uuid"

	"github.com/busanokirby/jc-web-v2/internal/money"
)

// Kind classifies one finding.
type Kind string

const (
	// KindOrphanPayment marks a payment whose parent no longer resolves.
	KindOrphanPayment Kind = "orphan_payment"
	// KindNegativePayment marks a payment row with a non-positive amount.
	KindNegativePayment Kind = "negative_payment"
	// KindStatusMismatch marks a derived status inconsistent with the
	// ledger it should have been derived from.
	KindStatusMismatch Kind = "status_mismatch"
)

// Finding is one detected violation.
type Finding struct {
	Kind     Kind        `json:"kind"`
	Family   string      `json:"family"`
	RecordID int64       `json:"record_id"`
	ParentID int64       `json:"parent_id,omitempty"`
	Amount   money.Money `json:"amount,omitempty"`
	Detail   string      `json:"detail"`
}

// Report is the result of one scan. RunID ties log lines, the HTTP
// response and any follow-up cleanup to the same scan.
type Report struct {
	RunID       uuid.UUID `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Findings    []Finding `json:"findings"`
	Orphans     int       `json:"orphans"`
	Negatives   int       `json:"negatives"`
	Mismatches  int       `json:"mismatches"`
}

// Clean reports whether the scan found nothing.
func (r Report) Clean() bool {
	return len(r.Findings) == 0
}
