package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/companytinder/internal/model"
	"github.com/nhle/companytinder/internal/store"
	"github.com/nhle/companytinder/tests/testutil"
)

func TestSettingsDefaults(t *testing.T) {
	s := testutil.NewTestStore(t)

	got, err := s.GetSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.DefaultSettings(), got)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	want := model.Settings{
		SenderName:  "Ada Lovelace",
		SenderEmail: "ada@example.com",
		BCCList:     "crm@example.com, me@example.com",
		DailyCap:    10,
	}
	require.NoError(t, s.UpdateSettings(ctx, want))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	err := s.UpdateSettings(ctx, model.Settings{SenderEmail: "not-an-address", DailyCap: 5})
	require.Error(t, err)

	err = s.UpdateSettings(ctx, model.Settings{SenderEmail: "a@example.com", DailyCap: -1})
	require.Error(t, err)

	err = s.UpdateSettings(ctx, model.Settings{SenderEmail: "a@example.com", BCCList: "ok@example.com, nope", DailyCap: 1})
	require.Error(t, err)

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, model.DefaultSettings(), got)
}

func TestCountSendsSince(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{-2 * time.Hour, -time.Minute, 0, time.Hour} {
		rec := model.NewSendRecord(string(rune('a'+i)), base.Add(offset))
		require.NoError(t, s.RecordSend(ctx, rec))
	}

	n, err := s.CountSendsSince(ctx, base)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.CountSendsSince(ctx, base.Add(-3*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 4, n)

	recs, err := s.ListSendsSince(ctx, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "b", recs[0].ID)
	require.True(t, base.Add(-time.Minute).Equal(recs[0].Time()))
}

func TestRecordSendRequiresID(t *testing.T) {
	s := testutil.NewTestStore(t)
	err := s.RecordSend(context.Background(), model.SendRecord{Timestamp: 1})
	require.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSend(ctx, model.NewSendRecord("m1", time.Now())))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountSendsSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
