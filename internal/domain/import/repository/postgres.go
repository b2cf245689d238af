package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxErrorMessageLength = 1000

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	db DBTX
}

// NewPostgresImportRepository creates a new PostgreSQL-backed import repository
func NewPostgresImportRepository(db DBTX) *PostgresImportRepository {
	return &PostgresImportRepository{db: db}
}

const importColumns = `id, user_id, file_name, status, strategy, access_mode,
	transactions_count, total_amount_minor, currency_code, error_message, created_at, completed_at`

func scanImport(row pgx.Row) (*Import, error) {
	var imp Import
	err := row.Scan(
		&imp.ID, &imp.UserID, &imp.FileName, &imp.Status, &imp.Strategy, &imp.AccessMode,
		&imp.TransactionsCount, &imp.TotalAmountMinor, &imp.CurrencyCode, &imp.ErrorMessage,
		&imp.CreatedAt, &imp.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// CreateImport starts a batch in the processing state.
func (r *PostgresImportRepository) CreateImport(ctx context.Context, userID uuid.UUID, fileName, currencyCode string) (*Import, error) {
	query := `
		INSERT INTO imports (user_id, file_name, status, currency_code)
		VALUES ($1, $2, 'processing', $3)
		RETURNING ` + importColumns

	imp, err := scanImport(r.db.QueryRow(ctx, query, userID, fileName, currencyCode))
	if err != nil {
		return nil, fmt.Errorf("failed to create import: %w", err)
	}
	return imp, nil
}

// CompleteImport marks a batch completed with its final counts.
func (r *PostgresImportRepository) CompleteImport(ctx context.Context, importID uuid.UUID, summary ImportSummary) error {
	query := `
		UPDATE imports
		SET status = 'completed', transactions_count = $2, total_amount_minor = $3,
			strategy = NULLIF($4, ''), access_mode = NULLIF($5, ''), completed_at = now()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, importID,
		summary.TransactionsCount, summary.TotalAmountMinor, summary.Strategy, summary.AccessMode)
	if err != nil {
		return fmt.Errorf("failed to complete import: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("import %s not found: %w", importID, pgx.ErrNoRows)
	}
	return nil
}

// FailImport marks a batch failed with the error message.
func (r *PostgresImportRepository) FailImport(ctx context.Context, importID uuid.UUID, message string) error {
	if len(message) > maxErrorMessageLength {
		message = message[:maxErrorMessageLength]
	}
	query := `
		UPDATE imports
		SET status = 'failed', error_message = $2, completed_at = now()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, importID, message)
	if err != nil {
		return fmt.Errorf("failed to mark import failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("import %s not found: %w", importID, pgx.ErrNoRows)
	}
	return nil
}

// ListImports returns the user's most recent imports, newest first.
func (r *PostgresImportRepository) ListImports(ctx context.Context, userID uuid.UUID, limit int) ([]*Import, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	query := `
		SELECT ` + importColumns + `
		FROM imports
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	imports := make([]*Import, 0, limit)
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}

// CreateTransaction inserts a transaction and its tags in one database transaction.
func (r *PostgresImportRepository) CreateTransaction(ctx context.Context, t *Transaction, tags []string) (id uuid.UUID, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	categoryID, err := defaultCategory(ctx, tx)
	if err != nil {
		return uuid.Nil, err
	}

	insert := `
		INSERT INTO transactions (
			user_id, import_id, category_id, posted_at, description, merchant,
			amount_minor, currency_code, payment_method, raw_data
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
		RETURNING id
	`
	err = tx.QueryRow(ctx, insert,
		t.UserID, t.ImportID, categoryID, t.PostedAt.In(time.UTC), t.Description, t.Merchant,
		t.AmountMinor, t.CurrencyCode, t.PaymentMethod, t.RawData,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, name := range NormalizeTags(tags) {
		if err := linkTag(ctx, tx, id, name); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return id, nil
}

// defaultCategory returns nil when no default category is configured.
func defaultCategory(ctx context.Context, tx pgx.Tx) (*uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM categories WHERE is_default LIMIT 1`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default category: %w", err)
	}
	return &id, nil
}

func linkTag(ctx context.Context, tx pgx.Tx, transactionID uuid.UUID, name string) error {
	var tagID uuid.UUID
	err := tx.QueryRow(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&tagID)
	if err != nil {
		return fmt.Errorf("failed to get or create tag %q: %w", name, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transaction_tags (transaction_id, tag_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, transactionID, tagID)
	if err != nil {
		return fmt.Errorf("failed to link tag %q: %w", name, err)
	}
	return nil
}

// NormalizeTags lowercases and trims tag names, dropping blanks and duplicates.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
