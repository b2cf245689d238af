package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_AreEmbeddedInOrder(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"00001_imports.sql",
		"00002_transactions.sql",
		"00003_merchant_overrides.sql",
	}, names)
}

func TestMigrations_HaveUpAndDown(t *testing.T) {
	err := fs.WalkDir(Migrations(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(Migrations(), path)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "-- +goose Up"), path)
		assert.True(t, strings.Contains(string(data), "-- +goose Down"), path)
		return nil
	})
	require.NoError(t, err)
}
