// Package storage keeps uploaded statement files on disk until they are parsed.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // relative to the user directory
	CreatedAt   time.Time `json:"created_at"`
}

// Storage holds uploads in a location the parser can reopen.
type Storage interface {
	// Upload stores a file and returns its metadata
	Upload(ctx context.Context, userID uuid.UUID, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// LocalPath returns the filesystem path of a stored file.
	LocalPath(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (string, error)

	// GetInfo returns metadata for a file
	GetInfo(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) (*FileInfo, error)

	// Delete removes a file and its metadata. Deleting a missing file is not an error.
	Delete(ctx context.Context, userID uuid.UUID, fileID uuid.UUID) error

	// PurgeOlderThan removes files stored more than maxAge ago and returns how many were removed.
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
}
