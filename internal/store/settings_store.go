package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/companytinder/internal/model"
)

// GetSettings returns the settings record, falling back to defaults when
// the row is missing.
func (s *SQLiteStore) GetSettings(ctx context.Context) (model.Settings, error) {
	var settings model.Settings
	err := s.db.GetContext(ctx, &settings, `
		SELECT sender_name, sender_email, bcc_list, daily_cap
		FROM settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("getting settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings validates and replaces the settings record.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings model.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO settings (id, sender_name, sender_email, bcc_list, daily_cap, updated_at)
		VALUES (1, :sender_name, :sender_email, :bcc_list, :daily_cap, :updated_at)
		ON CONFLICT(id) DO UPDATE SET
			sender_name  = excluded.sender_name,
			sender_email = excluded.sender_email,
			bcc_list     = excluded.bcc_list,
			daily_cap    = excluded.daily_cap,
			updated_at   = excluded.updated_at`,
		map[string]interface{}{
			"sender_name":  settings.SenderName,
			"sender_email": settings.SenderEmail,
			"bcc_list":     settings.BCCList,
			"daily_cap":    settings.DailyCap,
			"updated_at":   time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}
	return nil
}
