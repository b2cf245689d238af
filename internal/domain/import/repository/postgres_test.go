package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var importRowColumns = []string{
	"id", "user_id", "file_name", "status", "strategy", "access_mode",
	"transactions_count", "total_amount_minor", "currency_code", "error_message", "created_at", "completed_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

// ============================================================================
// Import batches
// ============================================================================

func TestCreateImport(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresImportRepository(mock)

	userID, importID := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO imports`).
		WithArgs(userID, "cartola.pdf", "CLP").
		WillReturnRows(pgxmock.NewRows(importRowColumns).AddRow(
			importID, userID, "cartola.pdf", ImportStatusProcessing, (*string)(nil), (*string)(nil),
			0, int64(0), "CLP", (*string)(nil), now, (*time.Time)(nil),
		))

	imp, err := repo.CreateImport(context.Background(), userID, "cartola.pdf", "CLP")
	require.NoError(t, err)
	assert.Equal(t, importID, imp.ID)
	assert.Equal(t, ImportStatusProcessing, imp.Status)
	assert.Nil(t, imp.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteImport(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresImportRepository(mock)
	importID := uuid.New()

	mock.ExpectExec(`UPDATE imports`).
		WithArgs(importID, 12, int64(345600), "table", "secondary").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.CompleteImport(context.Background(), importID, ImportSummary{
		TransactionsCount: 12,
		TotalAmountMinor:  345600,
		Strategy:          "table",
		AccessMode:        "secondary",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailImport(t *testing.T) {
	t.Run("truncates long messages", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresImportRepository(mock)
		importID := uuid.New()

		long := make([]byte, 1500)
		for i := range long {
			long[i] = 'x'
		}

		mock.ExpectExec(`UPDATE imports`).
			WithArgs(importID, string(long[:maxErrorMessageLength])).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.FailImport(context.Background(), importID, string(long)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing import", func(t *testing.T) {
		mock := newMock(t)
		repo := NewPostgresImportRepository(mock)
		importID := uuid.New()

		mock.ExpectExec(`UPDATE imports`).
			WithArgs(importID, "boom").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.FailImport(context.Background(), importID, "boom")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})
}

func TestListImports(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "default limit", limit: 0, wantLimit: DefaultListLimit},
		{name: "capped limit", limit: 500, wantLimit: DefaultListLimit},
		{name: "explicit limit", limit: 5, wantLimit: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewPostgresImportRepository(mock)
			userID := uuid.New()
			strategy, msg := "line_scan", "could not open document"
			now := time.Now()

			mock.ExpectQuery(`SELECT (.+) FROM imports`).
				WithArgs(userID, tt.wantLimit).
				WillReturnRows(pgxmock.NewRows(importRowColumns).
					AddRow(uuid.New(), userID, "b.pdf", ImportStatusCompleted, &strategy, (*string)(nil),
						3, int64(15000), "CLP", (*string)(nil), now, &now).
					AddRow(uuid.New(), userID, "a.pdf", ImportStatusFailed, (*string)(nil), (*string)(nil),
						0, int64(0), "CLP", &msg, now.Add(-time.Hour), &now))

			imports, err := repo.ListImports(context.Background(), userID, tt.limit)
			require.NoError(t, err)
			require.Len(t, imports, 2)
			assert.Equal(t, "line_scan", *imports[0].Strategy)
			assert.Equal(t, ImportStatusFailed, imports[1].Status)
			assert.Equal(t, msg, *imports[1].ErrorMessage)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// ============================================================================
// Transactions
// ============================================================================

func sampleTransaction() *Transaction {
	return &Transaction{
		UserID:        uuid.New(),
		ImportID:      uuid.New(),
		PostedAt:      civil.Date{Year: 2024, Month: 3, Day: 1},
		Description:   "STARBUCKS CAFE",
		Merchant:      "Starbucks",
		AmountMinor:   5990,
		CurrencyCode:  "CLP",
		PaymentMethod: "credit",
		RawData:       []byte(`{"amount":"5990"}`),
	}
}

func TestCreateTransaction_WithTags(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresImportRepository(mock)
	tx := sampleTransaction()
	categoryID, txID, tagID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM categories WHERE is_default`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(categoryID))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(tx.UserID, tx.ImportID, &categoryID, tx.PostedAt.In(time.UTC), tx.Description, tx.Merchant,
			tx.AmountMinor, tx.CurrencyCode, tx.PaymentMethod, tx.RawData).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(txID))
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("pdf-import").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(tagID))
	mock.ExpectExec(`INSERT INTO transaction_tags`).
		WithArgs(txID, tagID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := repo.CreateTransaction(context.Background(), tx, []string{" PDF-Import", "pdf-import", ""})
	require.NoError(t, err)
	assert.Equal(t, txID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransaction_NoDefaultCategory(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresImportRepository(mock)
	tx := sampleTransaction()
	txID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM categories WHERE is_default`).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(tx.UserID, tx.ImportID, (*uuid.UUID)(nil), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(txID))
	mock.ExpectCommit()

	id, err := repo.CreateTransaction(context.Background(), tx, nil)
	require.NoError(t, err)
	assert.Equal(t, txID, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTransaction_RollsBackOnFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresImportRepository(mock)
	tx := sampleTransaction()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM categories WHERE is_default`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(`INSERT INTO transactions`).
		WillReturnError(errors.New("value too long for type character varying(500)"))
	mock.ExpectRollback()

	_, err := repo.CreateTransaction(context.Background(), tx, []string{"pdf-import"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"pdf-import", "banco"}, NormalizeTags([]string{"PDF-Import ", "banco", " ", "pdf-import"}))
	assert.Empty(t, NormalizeTags(nil))
}
