package stock

import (
	"context"
	"fmt"

	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// MetricsPort counts committed ledger movements by type.
type MetricsPort interface {
	ObserveStockMovement(movementType string)
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID int64
	Type      MovementType
	Limit     int
}

// Service coordinates operator-initiated stock operations. Sales and
// repairs bypass it and call the ledger inside their own transactions.
type Service struct {
	repo    RepositoryPort
	audit   shared.AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics}
}

// StockIn records an inbound movement.
func (s *Service) StockIn(ctx context.Context, productID, qty int64, notes string, actorID int64) (Movement, error) {
	var m Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		m, err = In(ctx, tx, productID, qty, notes)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, actorID, m)
	s.observe(m)
	return m, nil
}

// StockOut records an operator-initiated outbound movement. Goods issued
// by a sale or repair go through those services instead so the movement
// shares their transaction.
func (s *Service) StockOut(ctx context.Context, productID, qty int64, notes string, actorID int64) (Movement, error) {
	var m Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		m, err = Out(ctx, tx, productID, qty, RefManual, 0, notes)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, actorID, m)
	s.observe(m)
	return m, nil
}

// AdjustStock applies a signed correction.
func (s *Service) AdjustStock(ctx context.Context, productID, delta int64, notes string, actorID int64) (Movement, error) {
	var m Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		m, err = Adjust(ctx, tx, productID, delta, notes)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.record(ctx, actorID, m)
	s.observe(m)
	return m, nil
}

// GetMovements lists movement history.
func (s *Service) GetMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

func (s *Service) observe(m Movement) {
	if s.metrics == nil || m.ID == 0 {
		return
	}
	s.metrics.ObserveStockMovement(string(m.Type))
}

func (s *Service) record(ctx context.Context, actorID int64, m Movement) {
	if s.audit == nil || m.ID == 0 {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   fmt.Sprintf("stock:%s", m.Type),
		Entity:   "stock_movement",
		EntityID: fmt.Sprintf("%d", m.ID),
		Meta: map[string]any{
			"product_id": m.ProductID,
			"qty":        m.Qty,
			"notes":      m.Notes,
		},
	})
}
