package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/busanokirby/jc-web-v2/internal/shared"
)

// OrphanRow is one payment whose parent did not resolve.
type OrphanRow struct {
	Family    string
	PaymentID int64
	ParentID  int64
}

// PaymentAmountRow is one ledger row with its raw amount.
type PaymentAmountRow struct {
	Family    string
	PaymentID int64
	ParentID  int64
	Amount    string
}

// MismatchRow is one parent whose stored status disagrees with its
// ledger.
type MismatchRow struct {
	Family   string
	ParentID int64
	Detail   string
}

// RepositoryPort defines the scan queries and the explicit cleanup.
type RepositoryPort interface {
	OrphanPayments(ctx context.Context) ([]OrphanRow, error)
	NegativePayments(ctx context.Context) ([]PaymentAmountRow, error)
	StatusMismatches(ctx context.Context) ([]MismatchRow, error)
	DeleteOrphanPayments(ctx context.Context, rows []OrphanRow) (int64, error)
}

// Service runs integrity scans and the administrative cleanup.
type Service struct {
	repo   RepositoryPort
	audit  shared.AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Scan collects every violation. It only reads; findings are surfaced
// for an operator to act on.
func (s *Service) Scan(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.New(), GeneratedAt: time.Now().UTC()}

	orphans, err := s.repo.OrphanPayments(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("scan orphans: %w", err)
	}
	for _, row := range orphans {
		report.Orphans++
		report.Findings = append(report.Findings, Finding{
			Kind:     KindOrphanPayment,
			Family:   row.Family,
			RecordID: row.PaymentID,
			ParentID: row.ParentID,
			Detail:   fmt.Sprintf("%s: %v", shared.ErrOrphanedRecord, row.ParentID),
		})
	}

	negatives, err := s.repo.NegativePayments(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("scan negatives: %w", err)
	}
	for _, row := range negatives {
		report.Negatives++
		report.Findings = append(report.Findings, Finding{
			Kind:     KindNegativePayment,
			Family:   row.Family,
			RecordID: row.PaymentID,
			ParentID: row.ParentID,
			Detail:   fmt.Sprintf("payment amount %s is not positive", row.Amount),
		})
	}

	mismatches, err := s.repo.StatusMismatches(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("scan mismatches: %w", err)
	}
	for _, row := range mismatches {
		report.Mismatches++
		report.Findings = append(report.Findings, Finding{
			Kind:     KindStatusMismatch,
			Family:   row.Family,
			RecordID: row.ParentID,
			ParentID: row.ParentID,
			Detail:   row.Detail,
		})
	}

	if s.logger != nil && !report.Clean() {
		s.logger.Warn("integrity scan found violations",
			slog.Int("orphans", report.Orphans),
			slog.Int("negatives", report.Negatives),
			slog.Int("mismatches", report.Mismatches))
	}
	return report, nil
}

// CleanupOrphans removes orphaned payments found by a fresh scan. This
// is the one correction path, explicit and audit-logged; the scan never
// deletes on its own.
func (s *Service) CleanupOrphans(ctx context.Context, actorID int64) (int64, error) {
	orphans, err := s.repo.OrphanPayments(ctx)
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}
	removed, err := s.repo.DeleteOrphanPayments(ctx, orphans)
	if err != nil {
		return 0, err
	}
	runID := uuid.New()
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "integrity:cleanup-orphans",
			Entity:   "payment",
			EntityID: runID.String(),
			Meta:     map[string]any{"removed": removed},
		}); err != nil && s.logger != nil {
			s.logger.Error("record cleanup audit", slog.Any("error", err), slog.String("run_id", runID.String()))
		}
	}
	if s.logger != nil {
		s.logger.Info("orphaned payments removed", slog.Int64("removed", removed), slog.String("run_id", runID.String()))
	}
	return removed, nil
}
