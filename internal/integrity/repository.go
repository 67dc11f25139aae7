package integrity

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides the scan queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OrphanPayments finds ledger rows whose parent row is gone.
func (r *Repository) OrphanPayments(ctx context.Context) ([]OrphanRow, error) {
	rows, err := r.pool.Query(ctx, `
SELECT 'sales', p.id, p.sale_id
FROM sale_payments p
LEFT JOIN sales s ON s.id = p.sale_id
WHERE s.id IS NULL
UNION ALL
SELECT 'repairs', p.id, p.repair_id
FROM repair_payments p
LEFT JOIN repairs r ON r.id = p.repair_id
WHERE r.id IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrphanRow
	for rows.Next() {
		var row OrphanRow
		if err := rows.Scan(&row.Family, &row.PaymentID, &row.ParentID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// NegativePayments finds ledger rows with non-positive amounts. The
// write path rejects them, so any hit predates the guards or bypassed
// the application.
func (r *Repository) NegativePayments(ctx context.Context) ([]PaymentAmountRow, error) {
	rows, err := r.pool.Query(ctx, `
SELECT 'sales', id, sale_id, amount::text FROM sale_payments WHERE amount <= 0
UNION ALL
SELECT 'repairs', id, repair_id, amount::text FROM repair_payments WHERE amount <= 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentAmountRow
	for rows.Next() {
		var row PaymentAmountRow
		if err := rows.Scan(&row.Family, &row.PaymentID, &row.ParentID, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// StatusMismatches finds parents whose stored status disagrees with
// their ledger or derived balance.
func (r *Repository) StatusMismatches(ctx context.Context) ([]MismatchRow, error) {
	rows, err := r.pool.Query(ctx, `
SELECT 'sales', s.id,
       'sale marked ' || s.status || ' with payments ' || COALESCE(SUM(p.amount), 0) || ' of ' || s.total
FROM sales s
LEFT JOIN sale_payments p ON p.sale_id = s.id
WHERE s.status IN ('PAID', 'PARTIAL')
GROUP BY s.id
HAVING (s.status = 'PAID' AND COALESCE(SUM(p.amount), 0) < s.total)
    OR (s.status = 'PARTIAL' AND COALESCE(SUM(p.amount), 0) >= s.total AND s.total > 0)
UNION ALL
SELECT 'repairs', r.id,
       'repair marked ' || r.payment_status || ' with balance ' || r.balance_due
FROM repairs r
WHERE NOT r.charge_waived
  AND ((r.payment_status = 'Paid' AND r.balance_due > 0)
    OR (r.payment_status = 'Pending' AND r.deposit_paid > 0)
    OR r.balance_due < 0)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MismatchRow
	for rows.Next() {
		var row MismatchRow
		if err := rows.Scan(&row.Family, &row.ParentID, &row.Detail); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteOrphanPayments removes the given orphaned rows.
func (r *Repository) DeleteOrphanPayments(ctx context.Context, orphans []OrphanRow) (int64, error) {
	var saleIDs, repairIDs []int64
	for _, row := range orphans {
		switch row.Family {
		case "sales":
			saleIDs = append(saleIDs, row.PaymentID)
		case "repairs":
			repairIDs = append(repairIDs, row.PaymentID)
		}
	}
	var removed int64
	if len(saleIDs) > 0 {
		tag, err := r.pool.Exec(ctx, `DELETE FROM sale_payments WHERE id = ANY($1)`, saleIDs)
		if err != nil {
			return removed, err
		}
		removed += tag.RowsAffected()
	}
	if len(repairIDs) > 0 {
		tag, err := r.pool.Exec(ctx, `DELETE FROM repair_payments WHERE id = ANY($1)`, repairIDs)
		if err != nil {
			return removed, err
		}
		removed += tag.RowsAffected()
	}
	return removed, nil
}
