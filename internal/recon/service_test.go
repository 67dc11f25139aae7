package recon_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/recon"
)

type memoryReconRepo struct {
	payments []recon.PaymentRow
	invoices []recon.InvoiceRow
	sales    []recon.OutstandingSaleRow
	repairs  []recon.OutstandingRepairRow

	paymentCalls int
}

func (r *memoryReconRepo) PaymentsReceived(_ context.Context, start, end time.Time) ([]recon.PaymentRow, error) {
	r.paymentCalls++
	var out []recon.PaymentRow
	for _, p := range r.payments {
		if p.PaidAt.Before(start) || p.PaidAt.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryReconRepo) Invoiced(_ context.Context, start, end time.Time) ([]recon.InvoiceRow, error) {
	var out []recon.InvoiceRow
	for _, row := range r.invoices {
		if row.At.Before(start) || row.At.After(end) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memoryReconRepo) OutstandingSales(_ context.Context) ([]recon.OutstandingSaleRow, error) {
	return r.sales, nil
}

func (r *memoryReconRepo) OutstandingRepairs(_ context.Context) ([]recon.OutstandingRepairRow, error) {
	return r.repairs, nil
}

func day(d int, hour int) time.Time {
	return time.Date(2026, time.March, d, hour, 0, 0, 0, time.UTC)
}

func rangeMarch() (time.Time, time.Time) {
	return day(1, 0), day(31, 23)
}

func fixtureRepo() *memoryReconRepo {
	return &memoryReconRepo{
		payments: []recon.PaymentRow{
			{Family: recon.FamilySales, Reference: "INV-1", Amount: money.MustParse("500.00"), Method: "Cash", PaidAt: day(2, 10)},
			{Family: recon.FamilySales, Reference: "INV-2", Amount: money.MustParse("250.00"), Method: "GCash", PaidAt: day(5, 12)},
			{Family: recon.FamilyRepairs, Reference: "T-1", Amount: money.MustParse("120.00"), Method: "Cash", PaidAt: day(6, 9)},
			// Outside the range; must never be counted.
			{Family: recon.FamilyRepairs, Reference: "T-2", Amount: money.MustParse("999.00"), Method: "Cash", PaidAt: time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)},
		},
		invoices: []recon.InvoiceRow{
			{Family: recon.FamilySales, Total: money.MustParse("750.00"), At: day(2, 10)},
			{Family: recon.FamilyRepairs, Total: money.MustParse("170.00"), At: day(7, 15)},
		},
		sales: []recon.OutstandingSaleRow{
			{Total: money.MustParse("300.00"), Received: money.Zero()},
			{Total: money.MustParse("400.00"), Received: money.MustParse("100.00")},
			{Total: money.MustParse("200.00"), Received: money.Zero(), OnCredit: true},
		},
		repairs: []recon.OutstandingRepairRow{
			{TotalCost: money.MustParse("150.00"), BalanceDue: money.MustParse("150.00"), Pending: true},
			{TotalCost: money.MustParse("170.00"), BalanceDue: money.MustParse("120.00"), Partial: true},
			{TotalCost: money.MustParse("80.00"), BalanceDue: money.MustParse("80.00"), OnCredit: true},
		},
	}
}

func TestRevenueReceivedCashBasis(t *testing.T) {
	svc := recon.NewService(fixtureRepo(), nil, 0, nil)
	start, end := rangeMarch()

	got, err := svc.RevenueReceived(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, "750.00", got.Sales.Display())
	require.Equal(t, "120.00", got.Repairs.Display())
	require.Equal(t, "870.00", got.Total.Display())
	require.Equal(t, 3, got.Count)
}

func TestRevenueInvoicedAccrualBasis(t *testing.T) {
	svc := recon.NewService(fixtureRepo(), nil, 0, nil)
	start, end := rangeMarch()

	got, err := svc.RevenueInvoiced(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, "750.00", got.Sales.Display())
	require.Equal(t, "170.00", got.Repairs.Display())
	require.Equal(t, "920.00", got.Total.Display())
}

func TestMethodBreakdownSharesBuckets(t *testing.T) {
	svc := recon.NewService(fixtureRepo(), nil, 0, nil)
	start, end := rangeMarch()

	got, err := svc.MethodBreakdown(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Sorted by method label: Cash before GCash. The sale and repair
	// cash payments land in the same bucket.
	require.Equal(t, "Cash", got[0].Method)
	require.Equal(t, "620.00", got[0].Amount.Display())
	require.Equal(t, 2, got[0].Count)
	require.Equal(t, "GCash", got[1].Method)
	require.Equal(t, "250.00", got[1].Amount.Display())
}

func TestOutstandingBuckets(t *testing.T) {
	svc := recon.NewService(fixtureRepo(), nil, 0, nil)

	got, err := svc.CurrentOutstanding(context.Background())
	require.NoError(t, err)
	require.Equal(t, "300.00", got.PendingSales.Display())
	// Partial sale owes 300, credit sale owes 200.
	require.Equal(t, "500.00", got.SalesBalanceDue.Display())
	require.Equal(t, "150.00", got.PendingRepairs.Display())
	// Partial repair owes 120, credit repair owes 80.
	require.Equal(t, "200.00", got.RepairsBalanceDue.Display())
	require.Equal(t, "1150.00", got.Total.Display())
}

func TestSummaryIsDeterministic(t *testing.T) {
	svc := recon.NewService(fixtureRepo(), nil, 0, nil)
	start, end := rangeMarch()
	ctx := context.Background()

	first, err := svc.BuildSummary(ctx, start, end)
	require.NoError(t, err)
	second, err := svc.BuildSummary(ctx, start, end)
	require.NoError(t, err)

	require.Equal(t, first.Received, second.Received)
	require.Equal(t, first.Invoiced, second.Invoiced)
	require.Equal(t, first.Methods, second.Methods)
	require.Equal(t, first.Outstanding, second.Outstanding)
}

func TestSummaryVisitsPaymentsOnce(t *testing.T) {
	repo := fixtureRepo()
	svc := recon.NewService(repo, nil, 0, nil)
	start, end := rangeMarch()

	_, err := svc.BuildSummary(context.Background(), start, end)
	require.NoError(t, err)
	// Received and the method breakdown share one fetch.
	require.Equal(t, 1, repo.paymentCalls)
}

func TestSummaryCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := fixtureRepo()
	svc := recon.NewService(repo, client, time.Minute, nil)
	start, end := rangeMarch()
	ctx := context.Background()

	first, err := svc.Summary(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, 1, repo.paymentCalls)

	second, err := svc.Summary(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, 1, repo.paymentCalls)
	require.Equal(t, first.Received, second.Received)
	require.Equal(t, first.Outstanding, second.Outstanding)
}

func TestNegativeAmountsNeverCounted(t *testing.T) {
	repo := &memoryReconRepo{
		payments: []recon.PaymentRow{
			{Family: recon.FamilySales, Amount: money.MustParse("100.00"), Method: "Cash", PaidAt: day(3, 10)},
			{Family: recon.FamilySales, Amount: money.Zero().Sub(money.MustParse("40.00")), Method: "Cash", PaidAt: day(3, 11)},
		},
	}
	svc := recon.NewService(repo, nil, 0, nil)
	start, end := rangeMarch()

	got, err := svc.RevenueReceived(context.Background(), start, end)
	require.NoError(t, err)
	require.Equal(t, "100.00", got.Total.Display())
	require.Equal(t, 1, got.Count)
}
