package shared

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is an immutable snapshot of the operator-controlled feature
// toggles. Components receive a snapshot by value; nothing reads the
// settings table ambiently.
type Settings struct {
	POSEnabled           bool
	InventoryEditBySales bool
	TechCanViewDetails   bool
}

// DefaultSettings is used when the settings row has never been written.
func DefaultSettings() Settings {
	return Settings{POSEnabled: true, InventoryEditBySales: false, TechCanViewDetails: true}
}

// SettingsSource loads snapshots.
type SettingsSource interface {
	Snapshot(ctx context.Context) (Settings, error)
}

// SettingsStore reads the single settings row from PostgreSQL.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettingsStore constructs the store.
func NewSettingsStore(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Snapshot returns the current toggles, falling back to defaults when the
// row is absent.
func (s *SettingsStore) Snapshot(ctx context.Context) (Settings, error) {
	var out Settings
	err := s.pool.QueryRow(ctx, `SELECT pos_enabled, inventory_edit_by_sales, tech_can_view_details FROM app_settings WHERE id = 1`).
		Scan(&out.POSEnabled, &out.InventoryEditBySales, &out.TechCanViewDetails)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}
	return out, nil
}

// Update persists new toggle values.
func (s *SettingsStore) Update(ctx context.Context, in Settings) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO app_settings (id, pos_enabled, inventory_edit_by_sales, tech_can_view_details)
VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO UPDATE SET pos_enabled = $1, inventory_edit_by_sales = $2, tech_can_view_details = $3`,
		in.POSEnabled, in.InventoryEditBySales, in.TechCanViewDetails)
	return err
}
