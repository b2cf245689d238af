package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, maxBytes int64) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), maxBytes)
	require.NoError(t, err)
	return s
}

func TestLocalStorage_UploadLocateDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 0)
	userID := uuid.New()

	info, err := s.Upload(ctx, userID, "../cartola marzo.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), info.Size)
	assert.Equal(t, "../cartola marzo.pdf", info.Name)
	assert.NotContains(t, info.Path, "/")

	path, err := s.LocalPath(ctx, userID, info.ID)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, userID, info.ID))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = s.LocalPath(ctx, userID, info.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NoError(t, s.Delete(ctx, userID, info.ID), "deleting twice is fine")
}

func TestLocalStorage_SizeLimit(t *testing.T) {
	s := newTestStorage(t, 4)
	userID := uuid.New()

	_, err := s.Upload(context.Background(), userID, "big.pdf", "application/pdf", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.basePath, userID.String()))
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file removed")

	_, err = s.Upload(context.Background(), userID, "ok.pdf", "application/pdf", strings.NewReader("1234"))
	assert.NoError(t, err)
}

func TestLocalStorage_PurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t, 0)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	s.now = func() time.Time { return now.Add(-48 * time.Hour) }
	stale, err := s.Upload(ctx, userID, "old.pdf", "application/pdf", strings.NewReader("old"))
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(-time.Hour) }
	fresh, err := s.Upload(ctx, userID, "new.pdf", "application/pdf", strings.NewReader("new"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(s.basePath, "README"), []byte("x"), 0o600))

	s.now = func() time.Time { return now }
	removed, err := s.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.GetInfo(ctx, userID, stale.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = s.GetInfo(ctx, userID, fresh.ID)
	assert.NoError(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"cartola.pdf":       "cartola.pdf",
		"../../etc/passwd":  "____etc_passwd",
		`a:b*c?"d<e>f|g\h`: "a_b_c__d_e_f_g_h",
		"":                  "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
