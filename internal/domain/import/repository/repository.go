// Package repository persists import batches and the transactions extracted
// from statements.
package repository

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ImportStatus is the lifecycle state of an import batch.
type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// DefaultListLimit is the number of imports returned by ListImports when no
// limit is given.
const DefaultListLimit = 50

// Import is one uploaded statement and its outcome.
type Import struct {
	ID                uuid.UUID    `json:"id"`
	UserID            uuid.UUID    `json:"user_id"`
	FileName          string       `json:"file_name"`
	Status            ImportStatus `json:"status"`
	Strategy          *string      `json:"strategy,omitempty"`
	AccessMode        *string      `json:"access_mode,omitempty"`
	TransactionsCount int          `json:"transactions_count"`
	TotalAmountMinor  int64        `json:"total_amount_minor"`
	CurrencyCode      string       `json:"currency_code"`
	ErrorMessage      *string      `json:"error_message,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
}

// ImportSummary is recorded when a batch completes.
type ImportSummary struct {
	TransactionsCount int
	TotalAmountMinor  int64
	Strategy          string
	AccessMode        string
}

// Transaction is a statement transaction ready to be stored.
type Transaction struct {
	UserID        uuid.UUID
	ImportID      uuid.UUID
	PostedAt      civil.Date
	Description   string
	Merchant      string
	AmountMinor   int64
	CurrencyCode  string
	PaymentMethod string
	// RawData is the extracted candidate as JSON.
	RawData []byte
}

// DBTX is the subset of pgxpool.Pool the repository uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ImportRepository defines the persistence operations for statement imports.
type ImportRepository interface {
	CreateImport(ctx context.Context, userID uuid.UUID, fileName, currencyCode string) (*Import, error)
	CompleteImport(ctx context.Context, importID uuid.UUID, summary ImportSummary) error
	FailImport(ctx context.Context, importID uuid.UUID, message string) error
	ListImports(ctx context.Context, userID uuid.UUID, limit int) ([]*Import, error)

	// CreateTransaction stores tx with the default category and links tags,
	// creating missing ones. It returns the new transaction ID.
	CreateTransaction(ctx context.Context, tx *Transaction, tags []string) (uuid.UUID, error)
}
