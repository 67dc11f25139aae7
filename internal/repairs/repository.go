package repairs

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/busanokirby/jc-web-v2/internal/platform/db"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/internal/stock"
)

// Repository provides PostgreSQL backed persistence for repairs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const repairColumns = `id, ticket_no, customer_id, device_type, problem, diagnostic_fee, repair_cost, parts_cost, total_cost, deposit_paid, balance_due, payment_status, claimed_on_credit, charge_waived, archived, completed_at, created_at`

// WithTx wraps fn in a RepeatableRead transaction whose repository also
// exposes the stock ledger surface.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, TxRepository: stock.NewTxRepository(tx)})
	})
}

// GetRepair loads a ticket with its parts and payments.
func (r *Repository) GetRepair(ctx context.Context, id int64) (Repair, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id = $1`, id)
	repair, err := scanRepair(row)
	if err != nil {
		return Repair{}, err
	}

	partRows, err := r.pool.Query(ctx, `SELECT id, repair_id, product_id, qty, unit_price, line_total FROM repair_parts WHERE repair_id = $1 ORDER BY id`, id)
	if err != nil {
		return Repair{}, err
	}
	defer partRows.Close()
	repair.Parts, err = scanParts(partRows)
	if err != nil {
		return Repair{}, err
	}

	payRows, err := r.pool.Query(ctx, `SELECT id, repair_id, amount, method, paid_at, note, created_at FROM repair_payments WHERE repair_id = $1 ORDER BY id`, id)
	if err != nil {
		return Repair{}, err
	}
	defer payRows.Close()
	repair.Payments, err = scanPayments(payRows)
	if err != nil {
		return Repair{}, err
	}
	return repair, nil
}

// ListRepairs returns tickets matching the filter, newest first.
func (r *Repository) ListRepairs(ctx context.Context, filter ListFilter) ([]Repair, error) {
	query := `SELECT ` + repairColumns + ` FROM repairs WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND payment_status = $` + strconv.Itoa(len(args))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		query += ` AND archived = $` + strconv.Itoa(len(args))
	}
	if filter.OnCredit {
		query += ` AND claimed_on_credit = TRUE`
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Repair
	for rows.Next() {
		repair, err := scanRepair(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, repair)
	}
	return out, rows.Err()
}

// txRepo implements TxRepository over one pgx transaction. The embedded
// stock surface shares the same transaction.
type txRepo struct {
	stock.TxRepository
	tx pgx.Tx
}

func (t *txRepo) InsertRepair(ctx context.Context, r Repair) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO repairs (ticket_no, customer_id, device_type, problem, diagnostic_fee, repair_cost, parts_cost, total_cost, deposit_paid, balance_due, payment_status, claimed_on_credit, charge_waived, archived, completed_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`,
		r.TicketNo, nullableID(r.CustomerID), r.DeviceType, r.Problem, r.DiagnosticFee, r.RepairCost, r.PartsCost, r.TotalCost, r.DepositPaid, r.BalanceDue,
		string(r.PaymentStatus), r.ClaimedOnCredit, r.ChargeWaived, r.Archived, r.CompletedAt, r.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepo) GetRepairForUpdate(ctx context.Context, id int64) (Repair, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+repairColumns+` FROM repairs WHERE id = $1 FOR UPDATE`, id)
	return scanRepair(row)
}

func (t *txRepo) UpdateRepair(ctx context.Context, r Repair) error {
	_, err := t.tx.Exec(ctx, `UPDATE repairs SET diagnostic_fee = $2, repair_cost = $3, parts_cost = $4, total_cost = $5, deposit_paid = $6, balance_due = $7, payment_status = $8, claimed_on_credit = $9, charge_waived = $10, archived = $11, completed_at = $12 WHERE id = $1`,
		r.ID, r.DiagnosticFee, r.RepairCost, r.PartsCost, r.TotalCost, r.DepositPaid, r.BalanceDue,
		string(r.PaymentStatus), r.ClaimedOnCredit, r.ChargeWaived, r.Archived, r.CompletedAt)
	return err
}

func (t *txRepo) InsertPart(ctx context.Context, p RepairPart) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO repair_parts (repair_id, product_id, qty, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.RepairID, p.ProductID, p.Qty, p.UnitPrice, p.LineTotal).Scan(&id)
	return id, err
}

func (t *txRepo) GetPart(ctx context.Context, id int64) (RepairPart, error) {
	var p RepairPart
	err := t.tx.QueryRow(ctx, `SELECT id, repair_id, product_id, qty, unit_price, line_total FROM repair_parts WHERE id = $1`, id).
		Scan(&p.ID, &p.RepairID, &p.ProductID, &p.Qty, &p.UnitPrice, &p.LineTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return RepairPart{}, shared.ErrNotFound
	}
	return p, err
}

func (t *txRepo) UpdatePart(ctx context.Context, p RepairPart) error {
	_, err := t.tx.Exec(ctx, `UPDATE repair_parts SET qty = $2, unit_price = $3, line_total = $4 WHERE id = $1`,
		p.ID, p.Qty, p.UnitPrice, p.LineTotal)
	return err
}

func (t *txRepo) DeletePart(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM repair_parts WHERE id = $1`, id)
	return err
}

func (t *txRepo) ListParts(ctx context.Context, repairID int64) ([]RepairPart, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, repair_id, product_id, qty, unit_price, line_total FROM repair_parts WHERE repair_id = $1 ORDER BY id`, repairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanParts(rows)
}

func (t *txRepo) InsertPayment(ctx context.Context, p RepairPayment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO repair_payments (repair_id, amount, method, paid_at, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.RepairID, p.Amount, p.Method, p.PaidAt, p.Note, p.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepo) ListPayments(ctx context.Context, repairID int64) ([]RepairPayment, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, repair_id, amount, method, paid_at, note, created_at FROM repair_payments WHERE repair_id = $1 ORDER BY id`, repairID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (t *txRepo) DeletePayments(ctx context.Context, repairID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM repair_payments WHERE repair_id = $1`, repairID)
	return err
}

func (t *txRepo) DeleteRepair(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM repair_payments WHERE repair_id = $1`, id); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM repair_parts WHERE repair_id = $1`, id); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM repairs WHERE id = $1`, id)
	return err
}

func scanRepair(row pgx.Row) (Repair, error) {
	var r Repair
	var status string
	var customerID *int64
	err := row.Scan(&r.ID, &r.TicketNo, &customerID, &r.DeviceType, &r.Problem, &r.DiagnosticFee, &r.RepairCost, &r.PartsCost, &r.TotalCost, &r.DepositPaid, &r.BalanceDue, &status, &r.ClaimedOnCredit, &r.ChargeWaived, &r.Archived, &r.CompletedAt, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Repair{}, shared.ErrNotFound
		}
		return Repair{}, err
	}
	if customerID != nil {
		r.CustomerID = *customerID
	}
	r.PaymentStatus = PaymentStatus(status)
	return r, nil
}

func scanParts(rows pgx.Rows) ([]RepairPart, error) {
	var out []RepairPart
	for rows.Next() {
		var p RepairPart
		if err := rows.Scan(&p.ID, &p.RepairID, &p.ProductID, &p.Qty, &p.UnitPrice, &p.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayments(rows pgx.Rows) ([]RepairPayment, error) {
	var out []RepairPayment
	for rows.Next() {
		var p RepairPayment
		if err := rows.Scan(&p.ID, &p.RepairID, &p.Amount, &p.Method, &p.PaidAt, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
