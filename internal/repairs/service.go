package repairs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/busanokirby/jc-web-v2/internal/money"
	"github.com/busanokirby/jc-web-v2/internal/shared"
	"github.com/busanokirby/jc-web-v2/internal/stock"
)

// ErrNotCompleted rejects archiving a ticket that was never completed.
var ErrNotCompleted = errors.New("repairs: ticket has not been completed")

// TxRepository is the transactional write surface for one repair. It
// embeds the stock ledger surface so part consumption commits with the
// ticket itself.
type TxRepository interface {
	stock.TxRepository

	InsertRepair(ctx context.Context, r Repair) (int64, error)
	GetRepairForUpdate(ctx context.Context, id int64) (Repair, error)
	UpdateRepair(ctx context.Context, r Repair) error
	InsertPart(ctx context.Context, p RepairPart) (int64, error)
	GetPart(ctx context.Context, id int64) (RepairPart, error)
	UpdatePart(ctx context.Context, p RepairPart) error
	DeletePart(ctx context.Context, id int64) error
	ListParts(ctx context.Context, repairID int64) ([]RepairPart, error)
	InsertPayment(ctx context.Context, p RepairPayment) (int64, error)
	ListPayments(ctx context.Context, repairID int64) ([]RepairPayment, error)
	DeletePayments(ctx context.Context, repairID int64) error
	DeleteRepair(ctx context.Context, id int64) error
}

// RepositoryPort defines data access methods for repairs.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRepair(ctx context.Context, id int64) (Repair, error)
	ListRepairs(ctx context.Context, filter ListFilter) ([]Repair, error)
}

// ListFilter narrows repair listings.
type ListFilter struct {
	Status   PaymentStatus
	Archived *bool
	OnCredit bool
	Limit    int
}

// MetricsPort counts payment outcomes on the ledger dashboards.
type MetricsPort interface {
	ObservePayment(family, outcome string)
}

// Service handles repair business logic.
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

// IntakeInput describes a new ticket.
type IntakeInput struct {
	TicketNo      string
	CustomerID    int64
	DeviceType    string
	Problem       string
	DiagnosticFee money.Money
	RepairCost    money.Money
	Deposit       money.Money
	Method        string
	ActorID       int64
}

// Intake creates a repair ticket, optionally with an initial deposit.
// The deposit runs through the same cap and tolerance chain as any other
// payment: it is capped to the quoted total and the excess is returned
// to the caller, never persisted.
func (s *Service) Intake(ctx context.Context, input IntakeInput) (Repair, money.Money, error) {
	if input.DiagnosticFee.IsNegative() || input.RepairCost.IsNegative() || input.Deposit.IsNegative() {
		return Repair{}, money.Money{}, shared.ErrInvalidAmount
	}

	excess := money.Zero()
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := time.Now().UTC()
		repair = Repair{
			TicketNo:      input.TicketNo,
			CustomerID:    input.CustomerID,
			DeviceType:    input.DeviceType,
			Problem:       input.Problem,
			DiagnosticFee: input.DiagnosticFee,
			RepairCost:    input.RepairCost,
			CreatedAt:     now,
		}
		if input.Deposit.IsPositive() {
			quoted := input.DiagnosticFee.Add(input.RepairCost)
			accepted, over, err := capToRemaining(input.Deposit, quoted, money.Zero(), s.tolerance)
			if err != nil {
				return err
			}
			excess = over
			if accepted.IsPositive() {
				repair.Payments = []RepairPayment{{
					Amount:    accepted,
					Method:    input.Method,
					PaidAt:    now,
					CreatedAt: now,
				}}
			}
		}
		if err := Recompute(&repair, FundingFor(repair)); err != nil {
			return err
		}
		id, err := tx.InsertRepair(ctx, repair)
		if err != nil {
			return err
		}
		repair.ID = id
		for i := range repair.Payments {
			repair.Payments[i].RepairID = id
			pid, err := tx.InsertPayment(ctx, repair.Payments[i])
			if err != nil {
				return err
			}
			repair.Payments[i].ID = pid
		}
		return nil
	})
	if err != nil {
		return Repair{}, money.Money{}, err
	}
	s.record(ctx, input.ActorID, "repair:intake", repair.ID, map[string]any{
		"ticket_no":      repair.TicketNo,
		"deposit_excess": excess.String(),
	})
	return repair, excess, nil
}

// capToRemaining bounds a payment to the open balance. The tolerance
// check runs on the amount actually being recorded.
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

// UpdateFees changes the diagnostic fee and repair cost, then re-derives
// the financials. Rejected while the ticket is payment-locked.
func (s *Service) UpdateFees(ctx context.Context, repairID int64, diagnosticFee, repairCost money.Money, actorID int64) (Repair, error) {
	if diagnosticFee.IsNegative() || repairCost.IsNegative() {
		return Repair{}, shared.ErrInvalidAmount
	}
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = s.loadForEdit(ctx, tx, repairID)
		if err != nil {
			return err
		}
		repair.DiagnosticFee = diagnosticFee
		repair.RepairCost = repairCost
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:fees", repairID, map[string]any{
		"diagnostic_fee": diagnosticFee.String(),
		"repair_cost":    repairCost.String(),
	})
	return repair, nil
}

// AddPart consumes stock for a part line and re-derives the financials,
// all in one transaction.
func (s *Service) AddPart(ctx context.Context, repairID, productID, qty int64, actorID int64) (Repair, error) {
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = s.loadForEdit(ctx, tx, repairID)
		if err != nil {
			return err
		}
		product, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		part := RepairPart{
			RepairID:  repairID,
			ProductID: productID,
			Qty:       qty,
			UnitPrice: product.SellPrice,
			LineTotal: product.SellPrice.MulInt(qty),
		}
		if _, err := stock.Out(ctx, tx, productID, qty, stock.RefRepair, repairID, fmt.Sprintf("repair %s", repair.TicketNo)); err != nil {
			return err
		}
		if _, err := tx.InsertPart(ctx, part); err != nil {
			return err
		}
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:part-add", repairID, map[string]any{"product_id": productID, "qty": qty})
	return repair, nil
}

// RemovePart returns a line's consumed stock to the shelf, deletes the
// line, and re-derives the financials in the same transaction.
func (s *Service) RemovePart(ctx context.Context, repairID, partID int64, actorID int64) (Repair, error) {
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = s.loadForEdit(ctx, tx, repairID)
		if err != nil {
			return err
		}
		part, err := tx.GetPart(ctx, partID)
		if err != nil {
			return err
		}
		if part.RepairID != repairID {
			return shared.ErrNotFound
		}
		product, err := tx.GetProductForUpdate(ctx, part.ProductID)
		if err != nil {
			return err
		}
		if !product.IsService {
			note := fmt.Sprintf("repair %s part removed", repair.TicketNo)
			if _, err := stock.In(ctx, tx, part.ProductID, part.Qty, note); err != nil {
				return err
			}
		}
		if err := tx.DeletePart(ctx, partID); err != nil {
			return err
		}
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:part-remove", repairID, map[string]any{"part_id": partID})
	return repair, nil
}

// UpdatePartPrice overrides one part line's unit price and re-derives.
func (s *Service) UpdatePartPrice(ctx context.Context, repairID, partID int64, unitPrice money.Money, actorID int64) (Repair, error) {
	if unitPrice.IsNegative() {
		return Repair{}, shared.ErrInvalidAmount
	}
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = s.loadForEdit(ctx, tx, repairID)
		if err != nil {
			return err
		}
		part, err := tx.GetPart(ctx, partID)
		if err != nil {
			return err
		}
		if part.RepairID != repairID {
			return shared.ErrNotFound
		}
		part.UnitPrice = unitPrice
		part.LineTotal = unitPrice.MulInt(part.Qty)
		if err := tx.UpdatePart(ctx, part); err != nil {
			return err
		}
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:part-price", repairID, map[string]any{"part_id": partID, "unit_price": unitPrice.String()})
	return repair, nil
}

// UpdatePartQty changes a line's quantity, issuing or returning the
// stock difference, then re-derives.
func (s *Service) UpdatePartQty(ctx context.Context, repairID, partID, qty int64, actorID int64) (Repair, error) {
	if qty <= 0 {
		return Repair{}, stock.ErrInvalidQuantity
	}
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = s.loadForEdit(ctx, tx, repairID)
		if err != nil {
			return err
		}
		part, err := tx.GetPart(ctx, partID)
		if err != nil {
			return err
		}
		if part.RepairID != repairID {
			return shared.ErrNotFound
		}
		note := fmt.Sprintf("repair %s qty change", repair.TicketNo)
		switch {
		case qty > part.Qty:
			if _, err := stock.Out(ctx, tx, part.ProductID, qty-part.Qty, stock.RefRepair, repairID, note); err != nil {
				return err
			}
		case qty < part.Qty:
			if _, err := stock.In(ctx, tx, part.ProductID, part.Qty-qty, note); err != nil {
				return err
			}
		}
		part.Qty = qty
		part.LineTotal = part.UnitPrice.MulInt(qty)
		if err := tx.UpdatePart(ctx, part); err != nil {
			return err
		}
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:part-qty", repairID, map[string]any{"part_id": partID, "qty": qty})
	return repair, nil
}

// AddPayment appends one payment to the ticket's ledger. The amount is
// capped to the exact remaining balance; excess is reported back, never
// persisted. Status is re-derived inside the same transaction.
func (s *Service) AddPayment(ctx context.Context, repairID int64, amount money.Money, method, note string, paidAt time.Time, actorID int64) (PaymentReceipt, error) {
	if !amount.IsPositive() {
		return PaymentReceipt{}, shared.ErrInvalidAmount
	}
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	var receipt PaymentReceipt
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		repair, err := tx.GetRepairForUpdate(ctx, repairID)
		if err != nil {
			return err
		}
		if repair.ChargeWaived {
			return fmt.Errorf("%w: repair %s", ErrWaived, repair.TicketNo)
		}
		payments, err := tx.ListPayments(ctx, repairID)
		if err != nil {
			return err
		}
		repair.Payments = payments
		received := FundingFor(repair).TotalReceived()
		if !repair.TotalCost.Sub(received).FloorZero().IsPositive() {
			return fmt.Errorf("%w: repair %s is fully settled", shared.ErrClosedTransaction, repair.TicketNo)
		}

		accepted, _, err := capToRemaining(amount, repair.TotalCost, received, s.tolerance)
		if err != nil {
			return err
		}

		payment := RepairPayment{
			RepairID:  repairID,
			Amount:    accepted,
			Method:    method,
			PaidAt:    paidAt,
			Note:      note,
			CreatedAt: time.Now().UTC(),
		}
		pid, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = pid
		repair.Payments = append(repair.Payments, payment)
		if err := s.rederive(ctx, tx, &repair); err != nil {
			return err
		}
		receipt = PaymentReceipt{Payment: payment, Accepted: accepted, Excess: amount.Sub(accepted), Status: repair.PaymentStatus}
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
	s.record(ctx, actorID, "repair:payment", repairID, map[string]any{
		"accepted": receipt.Accepted.String(),
		"excess":   receipt.Excess.String(),
		"method":   method,
	})
	return receipt, nil
}

// ClaimOnCredit releases the device without payment. The balance stays
// outstanding until settled.
func (s *Service) ClaimOnCredit(ctx context.Context, repairID int64, actorID int64) (Repair, error) {
	repair, err := s.transition(ctx, repairID, func(r *Repair) error {
		if r.ChargeWaived {
			return fmt.Errorf("%w: repair %s", shared.ErrClosedTransaction, r.TicketNo)
		}
		r.ClaimedOnCredit = true
		return nil
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:claim-credit", repairID, nil)
	return repair, nil
}

// Waive zeroes the ticket out. Used for devices pulled out or beyond
// repair; no value is ever collected.
func (s *Service) Waive(ctx context.Context, repairID int64, actorID int64) (Repair, error) {
	repair, err := s.transition(ctx, repairID, func(r *Repair) error {
		r.ChargeWaived = true
		r.ClaimedOnCredit = false
		return nil
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:waive", repairID, nil)
	return repair, nil
}

// Revert is the administrative reset: it erases the funding, clears the
// credit and waived flags, unarchives, and reopens the ticket for edits.
func (s *Service) Revert(ctx context.Context, repairID int64, actorID int64) (Repair, error) {
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = tx.GetRepairForUpdate(ctx, repairID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayments(ctx, repairID); err != nil {
			return err
		}
		repair.Payments = nil
		repair.DepositPaid = money.Zero()
		repair.ClaimedOnCredit = false
		repair.ChargeWaived = false
		repair.Archived = false
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:revert", repairID, nil)
	return repair, nil
}

// Complete stamps the completion date used by accrual reporting.
func (s *Service) Complete(ctx context.Context, repairID int64, completedAt time.Time, actorID int64) (Repair, error) {
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	repair, err := s.transition(ctx, repairID, func(r *Repair) error {
		r.CompletedAt = &completedAt
		return nil
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:complete", repairID, nil)
	return repair, nil
}

// Archive hides a completed ticket from the working list.
func (s *Service) Archive(ctx context.Context, repairID int64, actorID int64) (Repair, error) {
	repair, err := s.transition(ctx, repairID, func(r *Repair) error {
		if r.CompletedAt == nil {
			return ErrNotCompleted
		}
		r.Archived = true
		return nil
	})
	if err != nil {
		return Repair{}, err
	}
	s.record(ctx, actorID, "repair:archive", repairID, nil)
	return repair, nil
}

// DeleteRepair removes a ticket and re-issues every unit of stock its
// part lines consumed through compensating movements.
func (s *Service) DeleteRepair(ctx context.Context, repairID int64, reason string, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		repair, err := tx.GetRepairForUpdate(ctx, repairID)
		if err != nil {
			return err
		}
		note := fmt.Sprintf("repair %s deleted: %s", repair.TicketNo, reason)
		if _, err := stock.ReverseConsumption(ctx, tx, stock.RefRepair, repairID, note); err != nil {
			return err
		}
		return tx.DeleteRepair(ctx, repairID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "repair:delete", repairID, map[string]any{"reason": reason})
	return nil
}

// GetRepair returns a ticket with parts and payments.
func (s *Service) GetRepair(ctx context.Context, id int64) (Repair, error) {
	return s.repo.GetRepair(ctx, id)
}

// ListRepairs returns tickets matching the filter, newest first.
func (s *Service) ListRepairs(ctx context.Context, filter ListFilter) ([]Repair, error) {
	return s.repo.ListRepairs(ctx, filter)
}

// loadForEdit fetches the locked row and enforces the paid edit lock.
func (s *Service) loadForEdit(ctx context.Context, tx TxRepository, repairID int64) (Repair, error) {
	repair, err := tx.GetRepairForUpdate(ctx, repairID)
	if err != nil {
		return Repair{}, err
	}
	if repair.EditLocked() {
		return Repair{}, fmt.Errorf("%w: repair %s", shared.ErrEditLocked, repair.TicketNo)
	}
	return repair, nil
}

// rederive refreshes parts and payments from the transaction, recomputes
// the derived fields, and persists them.
func (s *Service) rederive(ctx context.Context, tx TxRepository, repair *Repair) error {
	parts, err := tx.ListParts(ctx, repair.ID)
	if err != nil {
		return err
	}
	repair.Parts = parts
	repair.PartsCost = PartsTotal(parts)
	payments, err := tx.ListPayments(ctx, repair.ID)
	if err != nil {
		return err
	}
	repair.Payments = payments
	if err := Recompute(repair, FundingFor(*repair)); err != nil {
		return err
	}
	return tx.UpdateRepair(ctx, *repair)
}

func (s *Service) transition(ctx context.Context, repairID int64, mutate func(*Repair) error) (Repair, error) {
	var repair Repair
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		repair, err = tx.GetRepairForUpdate(ctx, repairID)
		if err != nil {
			return err
		}
		if err := mutate(&repair); err != nil {
			return err
		}
		return s.rederive(ctx, tx, &repair)
	})
	if err != nil {
		return Repair{}, err
	}
	return repair, nil
}

func (s *Service) observePayment(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObservePayment("repairs", outcome)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, repairID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "repair",
		EntityID: fmt.Sprintf("%d", repairID),
		Meta:     meta,
	})
}
