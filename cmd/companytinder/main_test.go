package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandLists(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{
		"setup", "settings", "status", "connect", "disconnect",
		"send", "quota", "history", "config",
	}, names)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companytinder", "config.yaml")
	args := []string{"companytinder", "--config", path, "config", "init"}

	require.NoError(t, newRootCommand().Run(context.Background(), args))
	_, err := os.Stat(path)
	require.NoError(t, err)

	err = newRootCommand().Run(context.Background(), args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	force := append(args, "--force")
	require.NoError(t, newRootCommand().Run(context.Background(), force))
}
