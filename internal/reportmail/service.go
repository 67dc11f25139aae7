package reportmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/busanokirby/jc-web-v2/internal/recon"
)

// ErrNoConfig signals that report mailing has never been configured.
var ErrNoConfig = errors.New("report mail not configured")

// Config is the stored report-mail configuration. LastSentAt is the
// zero time when no report has ever gone out.
type Config struct {
	ID         int64
	Enabled    bool
	Recipients []string
	Frequency  Frequency
	LastSentAt time.Time
}

// SendLogEntry records one delivery attempt.
type SendLogEntry struct {
	ConfigID  int64
	Recipient string
	Subject   string
	Status    string
	Error     string
	SentAt    time.Time
}

// RepositoryPort is the persistence surface for report mailing.
type RepositoryPort interface {
	ActiveConfig(ctx context.Context) (Config, error)
	MarkSent(ctx context.Context, configID int64, at time.Time) error
	InsertLog(ctx context.Context, entry SendLogEntry) error
}

// SummaryBuilder yields the reconciliation summary a report is built from.
type SummaryBuilder interface {
	BuildSummary(ctx context.Context, start, end time.Time) (recon.Summary, error)
}

// Service assembles and delivers the automated financial report.
type Service struct {
	repo    RepositoryPort
	summary SummaryBuilder
	mailer  Mailer
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo RepositoryPort, summary SummaryBuilder, mailer Mailer, logger *slog.Logger) *Service {
	return &Service{repo: repo, summary: summary, mailer: mailer, logger: logger, now: time.Now}
}

// Dispatch sends the report if the active configuration is enabled and
// the frequency gap has passed. It is safe to call on every scheduler
// tick: when nothing is due it returns without side effects.
func (s *Service) Dispatch(ctx context.Context) error {
	cfg, err := s.repo.ActiveConfig(ctx)
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return nil
		}
		return fmt.Errorf("load report mail config: %w", err)
	}
	if !cfg.Enabled || len(cfg.Recipients) == 0 {
		return nil
	}
	now := s.now().UTC()
	if !cfg.Frequency.ShouldSend(cfg.LastSentAt, now) {
		return nil
	}

	start, end := cfg.Frequency.Period(now)
	summary, err := s.summary.BuildSummary(ctx, start, end)
	if err != nil {
		return fmt.Errorf("build report summary: %w", err)
	}
	subject := Subject(cfg.Frequency, summary)
	body := RenderBody(summary)

	var firstErr error
	delivered := 0
	for _, rcpt := range cfg.Recipients {
		entry := SendLogEntry{ConfigID: cfg.ID, Recipient: rcpt, Subject: subject, Status: "sent", SentAt: now}
		if sendErr := s.mailer.Send(ctx, rcpt, subject, body); sendErr != nil {
			entry.Status = "failed"
			entry.Error = sendErr.Error()
			if firstErr == nil {
				firstErr = sendErr
			}
			s.logger.Error("report mail delivery failed", "recipient", rcpt, "error", sendErr)
		} else {
			delivered++
		}
		if logErr := s.repo.InsertLog(ctx, entry); logErr != nil {
			s.logger.Error("report mail log write failed", "error", logErr)
		}
	}
	if delivered == 0 {
		return fmt.Errorf("report mail: no recipient reached: %w", firstErr)
	}
	if err := s.repo.MarkSent(ctx, cfg.ID, now); err != nil {
		return fmt.Errorf("record report mail send: %w", err)
	}
	s.logger.Info("report mail sent", "frequency", cfg.Frequency, "recipients", delivered, "start", start, "end", end)
	return nil
}
