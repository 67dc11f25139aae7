package sales_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/busanokirby/jc-web-v2/internal/catalog"
	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/sales"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/internal/stock"
)

type memorySalesRepo struct {
	products  map[int64]catalog.Product
	sales     map[int64]sales.Sale
	items     []sales.SaleItem
	payments  []sales.SalePayment
	movements []stock.Movement
	nextID    int64
}

func newMemorySalesRepo(products ...catalog.Product) *memorySalesRepo {
	repo := &memorySalesRepo{
		products: make(map[int64]catalog.Product),
		sales:    make(map[int64]sales.Sale),
		nextID:   1,
	}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memorySalesRepo) id() int64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *memorySalesRepo) WithTx(ctx context.Context, fn func(context.Context, sales.TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memorySalesRepo) GetSale(_ context.Context, id int64) (sales.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return sales.Sale{}, shared.ErrNotFound
	}
	for _, item := range r.items {
		if item.SaleID == id {
			s.Items = append(s.Items, item)
		}
	}
	for _, p := range r.payments {
		if p.SaleID == id {
			s.Payments = append(s.Payments, p)
		}
	}
	return s, nil
}

func (r *memorySalesRepo) ListSales(_ context.Context, filter sales.ListFilter) ([]sales.Sale, error) {
	var out []sales.Sale
	for _, s := range r.sales {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memorySalesRepo) GetProductForUpdate(_ context.Context, productID int64) (catalog.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return catalog.Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memorySalesRepo) SetOnHand(_ context.Context, productID, onHand int64) error {
	p := r.products[productID]
	p.OnHand = onHand
	r.products[productID] = p
	return nil
}

func (r *memorySalesRepo) InsertMovement(_ context.Context, m stock.Movement) (int64, error) {
	m.ID = r.id()
	r.movements = append(r.movements, m)
	return m.ID, nil
}

func (r *memorySalesRepo) ListMovementsByRef(_ context.Context, refType stock.ReferenceType, refID int64) ([]stock.Movement, error) {
	var out []stock.Movement
	for _, m := range r.movements {
		if m.ReferenceType == refType && m.ReferenceID == refID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memorySalesRepo) InsertSale(_ context.Context, s sales.Sale) (int64, error) {
	s.ID = r.id()
	s.Items = nil
	s.Payments = nil
	r.sales[s.ID] = s
	return s.ID, nil
}

func (r *memorySalesRepo) InsertItem(_ context.Context, item sales.SaleItem) (int64, error) {
	item.ID = r.id()
	r.items = append(r.items, item)
	return item.ID, nil
}

func (r *memorySalesRepo) InsertPayment(_ context.Context, p sales.SalePayment) (int64, error) {
	p.ID = r.id()
	r.payments = append(r.payments, p)
	return p.ID, nil
}

func (r *memorySalesRepo) GetSaleForUpdate(_ context.Context, id int64) (sales.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return sales.Sale{}, shared.ErrNotFound
	}
	return s, nil
}

func (r *memorySalesRepo) ListPayments(_ context.Context, saleID int64) ([]sales.SalePayment, error) {
	var out []sales.SalePayment
	for _, p := range r.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memorySalesRepo) UpdateDerived(_ context.Context, saleID int64, status sales.SaleStatus, claimedOnCredit bool) error {
	s, ok := r.sales[saleID]
	if !ok {
		return shared.ErrNotFound
	}
	s.Status = status
	s.ClaimedOnCredit = claimedOnCredit
	r.sales[saleID] = s
	return nil
}

func screenAndCable() []catalog.Product {
	return []catalog.Product{
		{ID: 1, Name: "Screen", SellPrice: money.MustParse("500.00"), OnHand: 10},
		{ID: 2, Name: "Cable", SellPrice: money.MustParse("250.00"), OnHand: 4},
	}
}

func TestCheckoutFullPayment(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")

	sale, err := svc.Checkout(context.Background(), sales.CheckoutInput{
		InvoiceNo:  "INV-001",
		Items:      []sales.CheckoutItem{{ProductID: 1, Qty: 2}, {ProductID: 2, Qty: 1}},
		AmountPaid: money.MustParse("1250.00"),
		Method:     "Cash",
	})
	require.NoError(t, err)
	require.Equal(t, sales.StatusPaid, sale.Status)
	require.Equal(t, "1250", sale.Total.String())
	require.Len(t, sale.Payments, 1)
	require.EqualValues(t, 8, repo.products[1].OnHand)
	require.EqualValues(t, 3, repo.products[2].OnHand)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")

	_, err := svc.Checkout(context.Background(), sales.CheckoutInput{
		InvoiceNo:  "INV-002",
		Items:      []sales.CheckoutItem{{ProductID: 2, Qty: 5}},
		AmountPaid: money.MustParse("1250.00"),
		Method:     "Cash",
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestCheckoutCreditAndPaymentAreExclusive(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")

	_, err := svc.Checkout(context.Background(), sales.CheckoutInput{
		InvoiceNo:     "INV-003",
		Items:         []sales.CheckoutItem{{ProductID: 1, Qty: 1}},
		AmountPaid:    money.MustParse("100.00"),
		ClaimOnCredit: true,
	})
	require.ErrorIs(t, err, sales.ErrCreditWithPayment)
}

func TestCheckoutOnCreditRecordsNoPayment(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")

	sale, err := svc.Checkout(context.Background(), sales.CheckoutInput{
		InvoiceNo:     "INV-004",
		Items:         []sales.CheckoutItem{{ProductID: 1, Qty: 1}},
		ClaimOnCredit: true,
	})
	require.NoError(t, err)
	require.Equal(t, sales.StatusPartial, sale.Status)
	require.True(t, sale.ClaimedOnCredit)
	require.Empty(t, sale.Payments)
}

func TestCheckoutDiscountFloorsTotalAtZero(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")

	sale, err := svc.Checkout(context.Background(), sales.CheckoutInput{
		InvoiceNo: "INV-005",
		Items:     []sales.CheckoutItem{{ProductID: 2, Qty: 1}},
		Discount:  money.MustParse("400.00"),
	})
	require.NoError(t, err)
	require.True(t, sale.Total.IsZero())
}

func TestCheckoutRejectsNegativeDiscountAndTax(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")
	ctx := context.Background()

	_, err := svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo: "INV-006",
		Items:     []sales.CheckoutItem{{ProductID: 1, Qty: 1}},
		Discount:  money.MustParse("-50.00"),
	})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo: "INV-006",
		Items:     []sales.CheckoutItem{{ProductID: 1, Qty: 1}},
		Tax:       money.MustParse("-1.00"),
	})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
	require.Empty(t, repo.sales)
}

func TestAddPaymentCapsToRemainingAndReportsExcess(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")
	ctx := context.Background()

	sale, err := svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo: "INV-006",
		Items:     []sales.CheckoutItem{{ProductID: 1, Qty: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "1000", sale.Total.String())

	receipt, err := svc.AddPayment(ctx, sale.ID, money.MustParse("2000.00"), "Cash", "", time.Now(), 0)
	require.NoError(t, err)
	require.Equal(t, "1000", receipt.Accepted.String())
	require.Equal(t, "1000", receipt.Excess.String())
	require.Equal(t, sales.StatusPaid, receipt.Status)

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, "1000", sales.PaymentsTotal(got.Payments).String())
}

type paymentMetricsRecorder struct {
	outcomes []string
}

func (m *paymentMetricsRecorder) ObservePayment(family, outcome string) {
	m.outcomes = append(m.outcomes, family+":"+outcome)
}

func TestAddPaymentCountsOutcomes(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	metrics := &paymentMetricsRecorder{}
	svc := sales.NewService(repo, nil, metrics, "0.05")
	ctx := context.Background()

	sale, err := svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo: "INV-012",
		Items:     []sales.CheckoutItem{{ProductID: 1, Qty: 2}},
	})
	require.NoError(t, err)

	_, err = svc.AddPayment(ctx, sale.ID, money.MustParse("400.00"), "Cash", "", time.Now(), 0)
	require.NoError(t, err)
	_, err = svc.AddPayment(ctx, sale.ID, money.MustParse("900.00"), "Cash", "", time.Now(), 0)
	require.NoError(t, err)

	require.Equal(t, []string{"sales:accepted", "sales:capped"}, metrics.outcomes)
}

func TestAddPaymentRejectsNonPositive(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")

	_, err := svc.AddPayment(context.Background(), 1, money.Zero(), "Cash", "", time.Now(), 0)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestAddPaymentRejectsSettledSale(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")
	ctx := context.Background()

	sale, err := svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo:  "INV-007",
		Items:      []sales.CheckoutItem{{ProductID: 1, Qty: 1}},
		AmountPaid: money.MustParse("500.00"),
		Method:     "GCash",
	})
	require.NoError(t, err)
	require.Equal(t, sales.StatusPaid, sale.Status)

	_, err = svc.AddPayment(ctx, sale.ID, money.MustParse("10.00"), "Cash", "", time.Now(), 0)
	require.ErrorIs(t, err, shared.ErrClosedTransaction)
}

func TestFullPaymentClearsCreditFlag(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")
	ctx := context.Background()

	sale, err := svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo:     "INV-008",
		Items:         []sales.CheckoutItem{{ProductID: 1, Qty: 1}},
		ClaimOnCredit: true,
	})
	require.NoError(t, err)
	require.True(t, sale.ClaimedOnCredit)

	receipt, err := svc.AddPayment(ctx, sale.ID, money.MustParse("500.00"), "Cash", "", time.Now(), 0)
	require.NoError(t, err)
	require.Equal(t, sales.StatusPaid, receipt.Status)

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.False(t, got.ClaimedOnCredit)
}

func TestVoidSaleRestoresStock(t *testing.T) {
	repo := newMemorySalesRepo(screenAndCable()...)
	svc := sales.NewService(repo, nil, nil, "0.05")
	ctx := context.Background()

	sale, err := svc.Checkout(ctx, sales.CheckoutInput{
		InvoiceNo: "INV-009",
		Items:     []sales.CheckoutItem{{ProductID: 1, Qty: 3}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, repo.products[1].OnHand)

	require.NoError(t, svc.VoidSale(ctx, sale.ID, "customer cancelled", 0))
	require.EqualValues(t, 10, repo.products[1].OnHand)

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, sales.StatusVoid, got.Status)

	err = svc.VoidSale(ctx, sale.ID, "again", 0)
	require.ErrorIs(t, err, shared.ErrClosedTransaction)
}

func TestServiceItemSkipsStockOut(t *testing.T) {
	repo := newMemorySalesRepo(catalog.Product{ID: 3, Name: "Diagnostics", IsService: true, SellPrice: money.MustParse("300.00")})
	svc := sales.NewService(repo, nil, nil, "0.05")

	sale, err := svc.Checkout(context.Background(), sales.CheckoutInput{
		InvoiceNo:  "INV-010",
		Items:      []sales.CheckoutItem{{ProductID: 3, Qty: 1}},
		AmountPaid: money.MustParse("300.00"),
	})
	require.NoError(t, err)
	require.Equal(t, sales.StatusPaid, sale.Status)
	require.Empty(t, repo.movements)
}
