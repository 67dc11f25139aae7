package sales

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

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const saleColumns = `id, invoice_no, customer_id, status, claimed_on_credit, subtotal, discount, tax, total, created_at`

// WithTx wraps fn in a RepeatableRead transaction whose repository also
// exposes the stock ledger surface.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, TxRepository: stock.NewTxRepository(tx)})
	})
}

// GetSale loads a sale with its items and payments.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		return Sale{}, err
	}

	itemRows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, qty, unit_price, line_total FROM sale_items WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item SaleItem
		if err := itemRows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.Qty, &item.UnitPrice, &item.LineTotal); err != nil {
			return Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return Sale{}, err
	}

	payRows, err := r.pool.Query(ctx, `SELECT id, sale_id, amount, method, paid_at, note, created_at FROM sale_payments WHERE sale_id = $1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer payRows.Close()
	sale.Payments, err = scanPayments(payRows)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ListSales returns sales matching the filter, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
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

	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

// txRepo implements TxRepository over one pgx transaction. The embedded
// stock surface shares the same transaction.
type txRepo struct {
	stock.TxRepository
	tx pgx.Tx
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (invoice_no, customer_id, status, claimed_on_credit, subtotal, discount, tax, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		s.InvoiceNo, nullableID(s.CustomerID), string(s.Status), s.ClaimedOnCredit, s.Subtotal, s.Discount, s.Tax, s.Total, s.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepo) InsertItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, qty, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.SaleID, item.ProductID, item.Qty, item.UnitPrice, item.LineTotal).Scan(&id)
	return id, err
}

func (t *txRepo) InsertPayment(ctx context.Context, p SalePayment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_payments (sale_id, amount, method, paid_at, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.SaleID, p.Amount, p.Method, p.PaidAt, p.Note, p.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id)
	return scanSale(row)
}

func (t *txRepo) ListPayments(ctx context.Context, saleID int64) ([]SalePayment, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, sale_id, amount, method, paid_at, note, created_at FROM sale_payments WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (t *txRepo) UpdateDerived(ctx context.Context, saleID int64, status SaleStatus, claimedOnCredit bool) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET status = $2, claimed_on_credit = $3 WHERE id = $1`, saleID, string(status), claimedOnCredit)
	return err
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var status string
	var customerID *int64
	err := row.Scan(&s.ID, &s.InvoiceNo, &customerID, &status, &s.ClaimedOnCredit, &s.Subtotal, &s.Discount, &s.Tax, &s.Total, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, err
	}
	if customerID != nil {
		s.CustomerID = *customerID
	}
	s.Status = SaleStatus(status)
	return s, nil
}

func scanPayments(rows pgx.Rows) ([]SalePayment, error) {
	var out []SalePayment
	for rows.Next() {
		var p SalePayment
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Amount, &p.Method, &p.PaidAt, &p.Note, &p.CreatedAt); err != nil {
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
