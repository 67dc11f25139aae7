package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// Repository provides PostgreSQL backed product access.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, is_service, sell_price, on_hand, is_active, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.IsService, &p.SellPrice, &p.OnHand, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

// Get returns one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetTx returns one product inside an existing transaction.
func GetTx(ctx context.Context, tx pgx.Tx, id int64) (Product, error) {
	return scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetForUpdateTx locks the product row for the duration of the caller's
// transaction. The on-hand counter is the one piece of shared mutable
// state with a write-write race, so every mutation goes through this.
func GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (Product, error) {
	return scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

// SetOnHandTx writes the denormalized on-hand counter inside the caller's
// transaction. Only the stock ledger calls this.
func SetOnHandTx(ctx context.Context, tx pgx.Tx, id int64, onHand int64) error {
	ct, err := tx.Exec(ctx, `UPDATE products SET on_hand = $2 WHERE id = $1`, id, onHand)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListActive returns active products ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.IsService, &p.SellPrice, &p.OnHand, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a product. Used by seeds and the out-of-scope catalog UI.
func (r *Repository) Create(ctx context.Context, p Product) (Product, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, is_service, sell_price, on_hand, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.SKU, p.Name, p.IsService, p.SellPrice, p.OnHand, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		return Product{}, err
	}
	p.CreatedAt = now
	return p, nil
}
