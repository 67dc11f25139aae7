package stock

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/busanokirby/jc-web-v2/internal/catalog"
	"github.com/busanokirby/jc-web-v2/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the stock ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps fn in a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// ListMovements returns movement history, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT id, product_id, movement_type, qty, negative, reference_type, reference_id, notes, created_at FROM stock_movements WHERE 1=1`
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		query += ` AND product_id = $1`
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND movement_type = $` + itoa(len(args))
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// txRepo implements TxRepository over one pgx transaction.
type txRepo struct {
	tx pgx.Tx
}

// NewTxRepository adapts a pgx transaction to the ledger's transactional
// surface. Sales and repairs use it to issue goods atomically with their
// own writes.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

func (t *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (catalog.Product, error) {
	return catalog.GetForUpdateTx(ctx, t.tx, productID)
}

func (t *txRepo) SetOnHand(ctx context.Context, productID, onHand int64) error {
	return catalog.SetOnHandTx(ctx, t.tx, productID, onHand)
}

func (t *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, movement_type, qty, negative, reference_type, reference_id, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		m.ProductID, string(m.Type), m.Qty, m.Negative, string(m.ReferenceType), m.ReferenceID, m.Notes, m.CreatedAt).Scan(&id)
	return id, err
}

func (t *txRepo) ListMovementsByRef(ctx context.Context, refType ReferenceType, refID int64) ([]Movement, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, product_id, movement_type, qty, negative, reference_type, reference_id, notes, created_at
FROM stock_movements WHERE reference_type = $1 AND reference_id = $2 ORDER BY id`, string(refType), refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var m Movement
		var mt, rt string
		if err := rows.Scan(&m.ID, &m.ProductID, &mt, &m.Qty, &m.Negative, &rt, &m.ReferenceID, &m.Notes, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(mt)
		m.ReferenceType = ReferenceType(rt)
		out = append(out, m)
	}
	return out, rows.Err()
}
