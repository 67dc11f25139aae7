package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/busanokirby/jc-web-v2/internal/money"
)

// RepositoryPort defines the snapshot-consistent reads the aggregator
// needs. Implementations must resolve every payment's parent within the
// same snapshot the payment was read from.
type RepositoryPort interface {
	PaymentsReceived(ctx context.Context, start, end time.Time) ([]PaymentRow, error)
	Invoiced(ctx context.Context, start, end time.Time) ([]InvoiceRow, error)
	OutstandingSales(ctx context.Context) ([]OutstandingSaleRow, error)
	OutstandingRepairs(ctx context.Context) ([]OutstandingRepairRow, error)
}

// Service computes reconciliation reports. Pure reads; safe to run
// concurrently with writers.
type Service struct {
	repo     RepositoryPort
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewService builds Service. cache may be nil to disable summary
// caching.
func NewService(repo RepositoryPort, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// RevenueReceived sums payments received in the range on a cash basis:
// grouped by when money changed hands, never by transaction date.
func (s *Service) RevenueReceived(ctx context.Context, start, end time.Time) (RevenueReceived, error) {
	rows, err := s.repo.PaymentsReceived(ctx, start, end)
	if err != nil {
		return RevenueReceived{}, err
	}
	return receivedFromRows(rows), nil
}

// RevenueInvoiced sums transaction totals in the range on an accrual
// basis: sales by creation date, repairs by completion date.
func (s *Service) RevenueInvoiced(ctx context.Context, start, end time.Time) (RevenueInvoiced, error) {
	rows, err := s.repo.Invoiced(ctx, start, end)
	if err != nil {
		return RevenueInvoiced{}, err
	}
	return invoicedFromRows(rows), nil
}

// MethodBreakdown groups the range's received payments by method label.
// Both families land in the same bucket per label.
func (s *Service) MethodBreakdown(ctx context.Context, start, end time.Time) ([]MethodTotal, error) {
	rows, err := s.repo.PaymentsReceived(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return breakdownFromRows(rows), nil
}

// CurrentOutstanding partitions money owed right now by current status
// fields. It is never derived by subtracting received from invoiced;
// those cover a period while this covers a point in time.
func (s *Service) CurrentOutstanding(ctx context.Context) (Outstanding, error) {
	saleRows, err := s.repo.OutstandingSales(ctx)
	if err != nil {
		return Outstanding{}, err
	}
	repairRows, err := s.repo.OutstandingRepairs(ctx)
	if err != nil {
		return Outstanding{}, err
	}

	out := Outstanding{
		PendingSales:      money.Zero(),
		SalesBalanceDue:   money.Zero(),
		PendingRepairs:    money.Zero(),
		RepairsBalanceDue: money.Zero(),
	}
	for _, row := range saleRows {
		balance := row.Total.Sub(row.Received).FloorZero()
		if !balance.IsPositive() {
			continue
		}
		if row.Received.IsZero() && !row.OnCredit {
			out.PendingSales = out.PendingSales.Add(row.Total)
		} else {
			out.SalesBalanceDue = out.SalesBalanceDue.Add(balance)
		}
	}
	for _, row := range repairRows {
		switch {
		case row.Pending && !row.OnCredit:
			out.PendingRepairs = out.PendingRepairs.Add(row.TotalCost)
		case row.Partial || row.OnCredit:
			if row.BalanceDue.IsPositive() {
				out.RepairsBalanceDue = out.RepairsBalanceDue.Add(row.BalanceDue)
			}
		}
	}
	out.Total = money.Sum(out.PendingSales, out.SalesBalanceDue, out.PendingRepairs, out.RepairsBalanceDue)
	return out, nil
}

// BuildSummary computes all four reports for the range, visiting each
// payment row and each invoice row exactly once.
func (s *Service) BuildSummary(ctx context.Context, start, end time.Time) (Summary, error) {
	paymentRows, err := s.repo.PaymentsReceived(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	invoiceRows, err := s.repo.Invoiced(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	outstanding, err := s.CurrentOutstanding(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Start:       start,
		End:         end,
		Received:    receivedFromRows(paymentRows),
		Invoiced:    invoicedFromRows(invoiceRows),
		Methods:     breakdownFromRows(paymentRows),
		Outstanding: outstanding,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// Summary returns the cached summary for the range, computing and
// caching it on a miss.
func (s *Service) Summary(ctx context.Context, start, end time.Time) (Summary, error) {
	key := fmt.Sprintf("recon:summary:%s:%s", start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"))
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}
	summary, err := s.BuildSummary(ctx, start, end)
	if err != nil {
		return Summary{}, err
	}
	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil && s.logger != nil {
				s.logger.Warn("cache summary", slog.Any("error", err))
			}
		}
	}
	return summary, nil
}

func receivedFromRows(rows []PaymentRow) RevenueReceived {
	out := RevenueReceived{
		Sales:   money.Zero(),
		Repairs: money.Zero(),
	}
	for _, row := range rows {
		if !row.Amount.IsPositive() {
			continue
		}
		switch row.Family {
		case FamilySales:
			out.Sales = out.Sales.Add(row.Amount)
		case FamilyRepairs:
			out.Repairs = out.Repairs.Add(row.Amount)
		}
		out.Count++
	}
	out.Total = out.Sales.Add(out.Repairs)
	return out
}

func invoicedFromRows(rows []InvoiceRow) RevenueInvoiced {
	out := RevenueInvoiced{
		Sales:   money.Zero(),
		Repairs: money.Zero(),
	}
	for _, row := range rows {
		switch row.Family {
		case FamilySales:
			out.Sales = out.Sales.Add(row.Total)
		case FamilyRepairs:
			out.Repairs = out.Repairs.Add(row.Total)
		}
	}
	out.Total = out.Sales.Add(out.Repairs)
	return out
}

func breakdownFromRows(rows []PaymentRow) []MethodTotal {
	buckets := make(map[string]*MethodTotal)
	for _, row := range rows {
		if !row.Amount.IsPositive() {
			continue
		}
		method := row.Method
		if method == "" {
			method = "Cash"
		}
		bucket, ok := buckets[method]
		if !ok {
			bucket = &MethodTotal{Method: method, Amount: money.Zero()}
			buckets[method] = bucket
		}
		bucket.Amount = bucket.Amount.Add(row.Amount)
		bucket.Count++
	}
	out := make([]MethodTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}
