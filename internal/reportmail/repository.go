package reportmail

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists report-mail settings and the delivery log.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ActiveConfig(ctx context.Context) (Config, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, enabled, recipients, frequency, last_sent_at
		FROM report_mail_settings
		ORDER BY id DESC
		LIMIT 1`)

	var (
		cfg        Config
		frequency  string
		lastSentAt *time.Time
	)
	if err := row.Scan(&cfg.ID, &cfg.Enabled, &cfg.Recipients, &frequency, &lastSentAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ErrNoConfig
		}
		return Config{}, err
	}
	cfg.Frequency = Frequency(frequency)
	if lastSentAt != nil {
		cfg.LastSentAt = *lastSentAt
	}
	return cfg, nil
}

func (r *Repository) MarkSent(ctx context.Context, configID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE report_mail_settings SET last_sent_at = $1 WHERE id = $2`, at, configID)
	return err
}

func (r *Repository) InsertLog(ctx context.Context, entry SendLogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO report_mail_log (config_id, recipient, subject, status, error, sent_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		entry.ConfigID, entry.Recipient, entry.Subject, entry.Status, entry.Error, entry.SentAt)
	return err
}
