package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/companytinder/internal/model"
)

// RecordSend appends a send record.
func (s *SQLiteStore) RecordSend(ctx context.Context, rec model.SendRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("send record id must not be empty")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sends (id, ts) VALUES (?, ?)",
		rec.ID, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording send %s: %w", rec.ID, err)
	}
	return nil
}

// CountSendsSince counts records stamped at or after since.
func (s *SQLiteStore) CountSendsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM sends WHERE ts >= ?", since.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("counting sends since %s: %w", since.Format(time.RFC3339), err)
	}
	return n, nil
}

// ListSendsSince returns records stamped at or after since, oldest first.
func (s *SQLiteStore) ListSendsSince(ctx context.Context, since time.Time) ([]model.SendRecord, error) {
	var records []model.SendRecord
	err := s.db.SelectContext(ctx, &records,
		"SELECT id, ts FROM sends WHERE ts >= ? ORDER BY ts", since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing sends since %s: %w", since.Format(time.RFC3339), err)
	}
	return records, nil
}
