package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"completion-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SettingsLoader loads block settings JSONB from Postgres.
type SettingsLoader struct {
	pool *pgxpool.Pool
}

func NewSettingsLoader(pool *pgxpool.Pool) *SettingsLoader {
	return &SettingsLoader{pool: pool}
}

func (l *SettingsLoader) LoadSettings(ctx context.Context, blockID string) (domain.Settings, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM block_settings WHERE id=$1`, blockID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settings{}, domain.ErrBlockNotFound
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings := domain.DefaultSettings(blockID)
	if err := json.Unmarshal(raw, &settings); err != nil {
		return domain.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	settings.BlockID = blockID
	return settings, nil
}

// SaveSettings upserts settings for a block.
func (l *SettingsLoader) SaveSettings(ctx context.Context, settings domain.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO block_settings (id, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		settings.BlockID, string(data))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
