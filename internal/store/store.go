package store

import (
	"context"
	"time"

	"github.com/nhle/companytinder/internal/model"
)

// SettingsStore persists the single user settings record.
type SettingsStore interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateSettings(ctx context.Context, s model.Settings) error
}

// SendLog is the append-only record of successfully sent messages.
type SendLog interface {
	RecordSend(ctx context.Context, rec model.SendRecord) error
	CountSendsSince(ctx context.Context, since time.Time) (int, error)
}

// Store defines the full local persistence interface.
type Store interface {
	SettingsStore
	SendLog
	Close() error
}
