package recon

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides the aggregator's read queries. Each method runs
// inside one RepeatableRead transaction so payments and their parents
// come from a single snapshot.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) readOnly(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// PaymentsReceived returns payments from both families whose parent is
// open and not credit-claimed, with paid_at inside the range.
func (r *Repository) PaymentsReceived(ctx context.Context, start, end time.Time) ([]PaymentRow, error) {
	var out []PaymentRow
	err := r.readOnly(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT 'sales', s.invoice_no, p.amount, p.method, p.paid_at
FROM sale_payments p
JOIN sales s ON s.id = p.sale_id
WHERE p.paid_at >= $1 AND p.paid_at <= $2
  AND p.amount > 0
  AND s.status IN ('PAID', 'PARTIAL')
  AND NOT s.claimed_on_credit
UNION ALL
SELECT 'repairs', r.ticket_no, p.amount, p.method, p.paid_at
FROM repair_payments p
JOIN repairs r ON r.id = p.repair_id
WHERE p.paid_at >= $1 AND p.paid_at <= $2
  AND p.amount > 0
  AND NOT r.claimed_on_credit
  AND NOT r.charge_waived
ORDER BY 5`, start, end)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var row PaymentRow
			var family string
			if err := rows.Scan(&family, &row.Reference, &row.Amount, &row.Method, &row.PaidAt); err != nil {
				return err
			}
			row.Family = Family(family)
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

// Invoiced returns sale totals by creation date and repair totals by
// completion date, excluding void, credit-claimed and waived rows.
func (r *Repository) Invoiced(ctx context.Context, start, end time.Time) ([]InvoiceRow, error) {
	var out []InvoiceRow
	err := r.readOnly(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT 'sales', total, created_at
FROM sales
WHERE created_at >= $1 AND created_at <= $2
  AND status IN ('PAID', 'PARTIAL')
  AND NOT claimed_on_credit
UNION ALL
SELECT 'repairs', total_cost, completed_at
FROM repairs
WHERE completed_at IS NOT NULL
  AND completed_at >= $1 AND completed_at <= $2
  AND NOT claimed_on_credit
  AND NOT charge_waived
ORDER BY 3`, start, end)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var row InvoiceRow
			var family string
			if err := rows.Scan(&family, &row.Total, &row.At); err != nil {
				return err
			}
			row.Family = Family(family)
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

// OutstandingSales returns every open sale with its payment sum.
func (r *Repository) OutstandingSales(ctx context.Context) ([]OutstandingSaleRow, error) {
	var out []OutstandingSaleRow
	err := r.readOnly(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT s.total, COALESCE(SUM(p.amount), 0), s.claimed_on_credit
FROM sales s
LEFT JOIN sale_payments p ON p.sale_id = s.id
WHERE s.status = 'PARTIAL' OR s.claimed_on_credit
GROUP BY s.id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var row OutstandingSaleRow
			if err := rows.Scan(&row.Total, &row.Received, &row.OnCredit); err != nil {
				return err
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}

// OutstandingRepairs returns every open repair's stored derived fields.
func (r *Repository) OutstandingRepairs(ctx context.Context) ([]OutstandingRepairRow, error) {
	var out []OutstandingRepairRow
	err := r.readOnly(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
SELECT total_cost, balance_due, payment_status, claimed_on_credit
FROM repairs
WHERE NOT charge_waived
  AND (payment_status IN ('Pending', 'Partial') OR claimed_on_credit)`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var row OutstandingRepairRow
			var status string
			if err := rows.Scan(&row.TotalCost, &row.BalanceDue, &status, &row.OnCredit); err != nil {
				return err
			}
			row.Pending = status == "Pending"
			row.Partial = status == "Partial"
			out = append(out, row)
		}
		return rows.Err()
	})
	return out, err
}
