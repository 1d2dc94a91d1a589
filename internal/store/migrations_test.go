package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreSequential(t *testing.T) {
	for i, m := range migrations {
		require.Equal(t, i+1, m.version)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.runMigrations())

	v, err := s.schemaVersion()
	require.NoError(t, err)
	require.Equal(t, len(migrations), v)
}
