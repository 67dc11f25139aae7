package stock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/busanokirby/jc-web-v2/internal/catalog"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/internal/stock"
)

type memoryStockRepo struct {
	products  map[int64]catalog.Product
	movements []stock.Movement
	nextID    int64
}

func newMemoryStockRepo(products ...catalog.Product) *memoryStockRepo {
	repo := &memoryStockRepo{products: make(map[int64]catalog.Product), nextID: 1}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memoryStockRepo) WithTx(ctx context.Context, fn func(context.Context, stock.TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryStockRepo) ListMovements(_ context.Context, filter stock.MovementFilter) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range r.movements {
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *memoryStockRepo) GetProductForUpdate(_ context.Context, productID int64) (catalog.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryStockRepo) SetOnHand(_ context.Context, productID, onHand int64) error {
	p, ok := r.products[productID]
	if !ok {
		return shared.ErrNotFound
	}
	p.OnHand = onHand
	r.products[productID] = p
	return nil
}

func (r *memoryStockRepo) InsertMovement(_ context.Context, m stock.Movement) (int64, error) {
	m.ID = r.nextID
	r.nextID++
	r.movements = append(r.movements, m)
	return m.ID, nil
}

func (r *memoryStockRepo) ListMovementsByRef(_ context.Context, refType stock.ReferenceType, refID int64) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range r.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryStockRepo) signedSum(productID int64) int64 {
	var sum int64
	for _, m := range r.movements {
		if m.ProductID == productID {
			sum += m.Signed()
		}
	}
	return sum
}

func TestStockInIncrementsOnHand(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 3})
	svc := stock.NewService(repo, nil, nil)

	m, err := svc.StockIn(context.Background(), 1, 5, "restock", 9)
	require.NoError(t, err)
	require.Equal(t, stock.MovementIn, m.Type)
	require.EqualValues(t, 5, m.Qty)
	require.EqualValues(t, 8, repo.products[1].OnHand)
}

func TestStockInRejectsServiceItem(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 2, Name: "Diagnostics", IsService: true})
	svc := stock.NewService(repo, nil, nil)

	_, err := svc.StockIn(context.Background(), 2, 1, "", 9)
	require.ErrorIs(t, err, stock.ErrServiceItem)
	require.Empty(t, repo.movements)
}

func TestStockInRejectsNonPositiveQty(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 3})
	svc := stock.NewService(repo, nil, nil)

	_, err := svc.StockIn(context.Background(), 1, 0, "", 9)
	require.ErrorIs(t, err, stock.ErrInvalidQuantity)

	_, err = svc.StockIn(context.Background(), 1, -4, "", 9)
	require.ErrorIs(t, err, stock.ErrInvalidQuantity)
}

func TestStockOutNeverGoesNegative(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 2})
	svc := stock.NewService(repo, nil, nil)

	_, err := svc.StockOut(context.Background(), 1, 3, "", 9)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.EqualValues(t, 2, repo.products[1].OnHand)
	require.Empty(t, repo.movements)

	m, err := svc.StockOut(context.Background(), 1, 2, "", 9)
	require.NoError(t, err)
	require.Equal(t, stock.MovementOut, m.Type)
	require.EqualValues(t, 0, repo.products[1].OnHand)
}

func TestAdjustRejectsZeroAndNegativeResult(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 4})
	svc := stock.NewService(repo, nil, nil)

	_, err := svc.AdjustStock(context.Background(), 1, 0, "", 9)
	require.ErrorIs(t, err, stock.ErrZeroDelta)

	_, err = svc.AdjustStock(context.Background(), 1, -5, "", 9)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.EqualValues(t, 4, repo.products[1].OnHand)
}

func TestAdjustRecordsDirection(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 4})
	svc := stock.NewService(repo, nil, nil)

	down, err := svc.AdjustStock(context.Background(), 1, -3, "shrinkage", 9)
	require.NoError(t, err)
	require.True(t, down.Negative)
	require.EqualValues(t, 3, down.Qty)
	require.EqualValues(t, 1, repo.products[1].OnHand)

	up, err := svc.AdjustStock(context.Background(), 1, 2, "found in back room", 9)
	require.NoError(t, err)
	require.False(t, up.Negative)
	require.EqualValues(t, 3, repo.products[1].OnHand)
}

type movementMetricsRecorder struct {
	types []string
}

func (m *movementMetricsRecorder) ObserveStockMovement(movementType string) {
	m.types = append(m.types, movementType)
}

func TestMovementsAreCounted(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 4})
	metrics := &movementMetricsRecorder{}
	svc := stock.NewService(repo, nil, metrics)
	ctx := context.Background()

	_, err := svc.StockIn(ctx, 1, 5, "restock", 9)
	require.NoError(t, err)
	_, err = svc.StockOut(ctx, 1, 2, "", 9)
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, 1, -1, "shrinkage", 9)
	require.NoError(t, err)

	require.Equal(t, []string{
		string(stock.MovementIn),
		string(stock.MovementOut),
		string(stock.MovementAdjust),
	}, metrics.types)

	_, err = svc.StockOut(ctx, 1, 99, "", 9)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Len(t, metrics.types, 3)
}

func TestOnHandEqualsSignedSumOfMovements(t *testing.T) {
	repo := newMemoryStockRepo(catalog.Product{ID: 1, Name: "Screen", OnHand: 0})
	svc := stock.NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.StockIn(ctx, 1, 10, "", 9)
	require.NoError(t, err)
	_, err = svc.StockOut(ctx, 1, 4, "", 9)
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, 1, -2, "", 9)
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, 1, 1, "", 9)
	require.NoError(t, err)

	require.EqualValues(t, 5, repo.products[1].OnHand)
	require.Equal(t, repo.products[1].OnHand, repo.signedSum(1))
}

func TestReverseConsumption(t *testing.T) {
	repo := newMemoryStockRepo(
		catalog.Product{ID: 1, Name: "Screen", OnHand: 10},
		catalog.Product{ID: 2, Name: "Battery", OnHand: 6},
	)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(ctx context.Context, tx stock.TxRepository) error {
		if _, err := stock.Out(ctx, tx, 1, 2, stock.RefSale, 77, "sale"); err != nil {
			return err
		}
		_, err := stock.Out(ctx, tx, 2, 1, stock.RefSale, 77, "sale")
		return err
	})
	require.NoError(t, err)
	require.EqualValues(t, 8, repo.products[1].OnHand)
	require.EqualValues(t, 5, repo.products[2].OnHand)

	err = repo.WithTx(ctx, func(ctx context.Context, tx stock.TxRepository) error {
		reversals, err := stock.ReverseConsumption(ctx, tx, stock.RefSale, 77, "sale voided")
		if err != nil {
			return err
		}
		require.Len(t, reversals, 2)
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, repo.products[1].OnHand)
	require.EqualValues(t, 6, repo.products[2].OnHand)
	require.EqualValues(t, 0, repo.signedSum(1))
	require.EqualValues(t, 0, repo.signedSum(2))
}

func TestStockOutOnUnknownProduct(t *testing.T) {
	repo := newMemoryStockRepo()
	svc := stock.NewService(repo, nil, nil)

	_, err := svc.StockOut(context.Background(), 99, 1, "", 9)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
