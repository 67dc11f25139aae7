package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/internal/stock"
)

// ErrCreditWithPayment rejects a checkout that both claims credit and
// tenders money. The two settlement modes are mutually exclusive.
var ErrCreditWithPayment = errors.New("sales: cannot claim on credit and tender a payment in one checkout")

// ErrEmptyCart rejects a checkout without line items.
var ErrEmptyCart = errors.New("sales: checkout requires at least one item")

// TxRepository is the transactional write surface for one sale. It
// embeds the stock ledger surface so issuing goods commits with the
// sale itself.
type TxRepository interface {
	stock.TxRepository

	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertItem(ctx context.Context, item SaleItem) (int64, error)
	InsertPayment(ctx context.Context, p SalePayment) (int64, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	ListPayments(ctx context.Context, saleID int64) ([]SalePayment, error)
	UpdateDerived(ctx context.Context, saleID int64, status SaleStatus, claimedOnCredit bool) error
}

// RepositoryPort defines data access methods for sales.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// MetricsPort counts payment outcomes on the ledger dashboards.
type MetricsPort interface {
	ObservePayment(family, outcome string)
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Status SaleStatus
	From   time.Time
	To     time.Time
	Limit  int
}

// Service handles sale business logic.
type Service struct {
	repo      RepositoryPort
	audit     shared.AuditPort
	metrics   MetricsPort
	tolerance string
}

// NewService builds Service. tolerance is the overpayment fraction as a
// decimal string, "0.05" for 5 percent.
func NewService(repo RepositoryPort, audit shared.AuditPort, metrics MetricsPort, tolerance string) *Service {
	if tolerance == "" {
		tolerance = "0.05"
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, tolerance: tolerance}
}

// CheckoutItem is one requested cart line.
type CheckoutItem struct {
	ProductID int64
	Qty       int64
}

// CheckoutInput carries everything one checkout commits atomically.
type CheckoutInput struct {
	InvoiceNo     string
	CustomerID    int64
	Items         []CheckoutItem
	Discount      money.Money
	Tax           money.Money
	AmountPaid    money.Money
	Method        string
	PaidAt        time.Time
	ClaimOnCredit bool
	ActorID       int64
}

// Checkout creates a sale, issues its stock, and records the initial
// payment as one unit of work. Nothing persists if any step fails.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (Sale, error) {
	if len(input.Items) == 0 {
		return Sale{}, ErrEmptyCart
	}
	if input.ClaimOnCredit && input.AmountPaid.IsPositive() {
		return Sale{}, ErrCreditWithPayment
	}
	if input.AmountPaid.IsNegative() || input.Discount.IsNegative() || input.Tax.IsNegative() {
		return Sale{}, shared.ErrInvalidAmount
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now().UTC()
	}

	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := time.Now().UTC()
		sale = Sale{
			InvoiceNo:       input.InvoiceNo,
			CustomerID:      input.CustomerID,
			Status:          StatusPartial,
			ClaimedOnCredit: input.ClaimOnCredit,
			Discount:        input.Discount,
			Tax:             input.Tax,
			CreatedAt:       now,
		}

		subtotal := money.Zero()
		items := make([]SaleItem, 0, len(input.Items))
		for _, line := range input.Items {
			if line.Qty <= 0 {
				return stock.ErrInvalidQuantity
			}
			product, err := tx.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			item := SaleItem{
				ProductID: line.ProductID,
				Qty:       line.Qty,
				UnitPrice: product.SellPrice,
				LineTotal: product.SellPrice.MulInt(line.Qty),
			}
			subtotal = subtotal.Add(item.LineTotal)
			items = append(items, item)
		}
		sale.Subtotal = subtotal
		sale.Total = subtotal.Sub(input.Discount).FloorZero()

		saleID, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = saleID

		for i := range items {
			items[i].SaleID = saleID
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return err
			}
			items[i].ID = itemID
			if _, err := stock.Out(ctx, tx, items[i].ProductID, items[i].Qty, stock.RefSale, saleID, fmt.Sprintf("sale %s", sale.InvoiceNo)); err != nil {
				return err
			}
		}
		sale.Items = items

		received := money.Zero()
		if !input.ClaimOnCredit && input.AmountPaid.IsPositive() {
			accepted, _, err := capToRemaining(input.AmountPaid, sale.Total, money.Zero(), s.tolerance)
			if err != nil {
				return err
			}
			payment := SalePayment{
				SaleID:    saleID,
				Amount:    accepted,
				Method:    input.Method,
				PaidAt:    input.PaidAt,
				CreatedAt: now,
			}
			paymentID, err := tx.InsertPayment(ctx, payment)
			if err != nil {
				return err
			}
			payment.ID = paymentID
			sale.Payments = append(sale.Payments, payment)
			received = accepted
		}

		sale.Status = DeriveStatus(sale.Total, received)
		if sale.Status == StatusPaid {
			sale.ClaimedOnCredit = false
		}
		return tx.UpdateDerived(ctx, saleID, sale.Status, sale.ClaimedOnCredit)
	})
	if err != nil {
		return Sale{}, err
	}
	s.record(ctx, input.ActorID, "sale:checkout", sale.ID, map[string]any{
		"invoice_no": sale.InvoiceNo,
		"total":      sale.Total.String(),
		"status":     string(sale.Status),
	})
	return sale, nil
}

// AddPayment appends one payment to an open sale. The amount is capped
// to the exact remaining balance and any excess is reported back, never
// persisted. Status is re-derived inside the same transaction.
func (s *Service) AddPayment(ctx context.Context, saleID int64, amount money.Money, method, note string, paidAt time.Time, actorID int64) (PaymentReceipt, error) {
	if !amount.IsPositive() {
		return PaymentReceipt{}, shared.ErrInvalidAmount
	}
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var receipt PaymentReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if !sale.Status.Open() {
			return fmt.Errorf("%w: sale %s is %s", shared.ErrClosedTransaction, sale.InvoiceNo, sale.Status)
		}
		payments, err := tx.ListPayments(ctx, saleID)
		if err != nil {
			return err
		}
		received := PaymentsTotal(payments)
		remaining := sale.Total.Sub(received).FloorZero()
		if !remaining.IsPositive() {
			return fmt.Errorf("%w: sale %s is fully settled", shared.ErrClosedTransaction, sale.InvoiceNo)
		}
		accepted, excess, err := capToRemaining(amount, sale.Total, received, s.tolerance)
		if err != nil {
			return err
		}

		payment := SalePayment{
			SaleID:    saleID,
			Amount:    accepted,
			Method:    method,
			PaidAt:    paidAt,
			Note:      note,
			CreatedAt: time.Now().UTC(),
		}
		paymentID, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = paymentID

		status := DeriveStatus(sale.Total, received.Add(accepted))
		credit := sale.ClaimedOnCredit
		if status == StatusPaid {
			credit = false
		}
		if err := tx.UpdateDerived(ctx, saleID, status, credit); err != nil {
			return err
		}
		receipt = PaymentReceipt{Payment: payment, Accepted: accepted, Excess: excess, Status: status}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrOverpaymentRejected) {
			s.observePayment("rejected")
		}
		return PaymentReceipt{}, err
	}
	if receipt.Excess.IsPositive() {
		s.observePayment("capped")
	} else {
		s.observePayment("accepted")
	}
	s.record(ctx, actorID, "sale:payment", saleID, map[string]any{
		"accepted": receipt.Accepted.String(),
		"excess":   receipt.Excess.String(),
		"method":   method,
	})
	return receipt, nil
}

// VoidSale cancels a sale and re-issues every unit of stock it consumed
// through compensating movements. Terminal.
func (s *Service) VoidSale(ctx context.Context, saleID int64, reason string, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusVoid {
			return fmt.Errorf("%w: sale %s is already void", shared.ErrClosedTransaction, sale.InvoiceNo)
		}
		note := fmt.Sprintf("sale %s voided: %s", sale.InvoiceNo, reason)
		if _, err := stock.ReverseConsumption(ctx, tx, stock.RefSale, saleID, note); err != nil {
			return err
		}
		return tx.UpdateDerived(ctx, saleID, StatusVoid, false)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "sale:void", saleID, map[string]any{"reason": reason})
	return nil
}

// GetSale returns a sale with items and payments.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns sales matching the filter, newest first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

// capToRemaining caps the submitted amount to the exact remaining
// balance and reports the rest as excess, never persisting it. The
// tolerance guard runs on the amount that would actually be recorded,
// so a capped payment can never push the ledger past total*(1+tol).
func capToRemaining(amount, total, received money.Money, tolerance string) (money.Money, money.Money, error) {
	remaining := total.Sub(received).FloorZero()
	accepted := amount
	if accepted.GreaterThan(remaining) {
		accepted = remaining
	}
	limit := total.WithTolerance(tolerance)
	if received.Add(accepted).GreaterThan(limit) {
		return money.Money{}, money.Money{}, fmt.Errorf("%w: %s over a limit of %s", shared.ErrOverpaymentRejected, received.Add(accepted).String(), limit.String())
	}
	return accepted, amount.Sub(accepted), nil
}

func (s *Service) observePayment(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObservePayment("sales", outcome)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, saleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: fmt.Sprintf("%d", saleID),
		Meta:     meta,
	})
}
