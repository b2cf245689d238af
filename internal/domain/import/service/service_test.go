package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
	"github.com/FACorreiaa/bankountable/internal/domain/import/parser"
	"github.com/FACorreiaa/bankountable/internal/domain/import/repository"
	"github.com/FACorreiaa/bankountable/pkg/metrics"
	"github.com/FACorreiaa/bankountable/pkg/storage"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeRepo struct {
	importID   uuid.UUID
	saved      []*repository.Transaction
	tags       [][]string
	failOn     map[string]bool
	completed   *repository.ImportSummary
	completeErr error
	failedWith  string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{importID: uuid.New(), failOn: map[string]bool{}}
}

func (r *fakeRepo) CreateImport(_ context.Context, userID uuid.UUID, fileName, currency string) (*repository.Import, error) {
	return &repository.Import{ID: r.importID, UserID: userID, FileName: fileName, CurrencyCode: currency,
		Status: repository.ImportStatusProcessing}, nil
}

func (r *fakeRepo) CompleteImport(_ context.Context, _ uuid.UUID, summary repository.ImportSummary) error {
	if r.completeErr != nil {
		return r.completeErr
	}
	r.completed = &summary
	return nil
}

func (r *fakeRepo) FailImport(_ context.Context, _ uuid.UUID, message string) error {
	r.failedWith = message
	return nil
}

func (r *fakeRepo) ListImports(_ context.Context, userID uuid.UUID, limit int) ([]*repository.Import, error) {
	return []*repository.Import{{ID: r.importID, UserID: userID}}, nil
}

func (r *fakeRepo) CreateTransaction(_ context.Context, tx *repository.Transaction, tags []string) (uuid.UUID, error) {
	if r.failOn[tx.Description] {
		return uuid.Nil, errors.New("insert failed")
	}
	r.saved = append(r.saved, tx)
	r.tags = append(r.tags, tags)
	return uuid.New(), nil
}

type fakeParser struct {
	result  *parser.ParseResult
	err     error
	content string
}

func (p *fakeParser) ParseFile(_ context.Context, path string) (*parser.ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p.content = string(data)
	return p.result, p.err
}

type fakeOverrides struct {
	overrides []normalizer.MerchantOverride
	recorded  []uuid.UUID
}

func (o *fakeOverrides) GetOverridesForUser(context.Context, uuid.UUID) ([]normalizer.MerchantOverride, error) {
	return o.overrides, nil
}

func (o *fakeOverrides) RecordMatch(_ context.Context, id uuid.UUID) error {
	o.recorded = append(o.recorded, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func candidate(day int, desc string, amount int64) parser.Candidate {
	return parser.Candidate{
		Date:          civil.Date{Year: 2024, Month: 3, Day: day},
		Description:   desc,
		Merchant:      normalizer.ExtractMerchant(desc),
		Amount:        decimal.NewFromInt(amount),
		PaymentMethod: normalizer.InferPaymentMethod(desc),
	}
}

type fixture struct {
	svc     *ImportService
	repo    *fakeRepo
	parser  *fakeParser
	dir     string
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, result *parser.ParseResult, parseErr error) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, 1<<20)
	require.NoError(t, err)

	repo := newFakeRepo()
	p := &fakeParser{result: result, err: parseErr}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewImportService(repo, store, p, "CLP", discardLogger()).WithMetrics(m)
	return &fixture{svc: svc, repo: repo, parser: p, dir: dir, metrics: m}
}

// uploadsLeft counts stored files, ignoring metadata.
func (f *fixture) uploadsLeft(t *testing.T) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(f.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

// ============================================================================
// ImportStatement
// ============================================================================

func TestImportStatement_PersistsCandidates(t *testing.T) {
	f := newFixture(t, &parser.ParseResult{
		Candidates: []parser.Candidate{
			candidate(1, "STARBUCKS CAFE", 5990),
			candidate(2, "BROKEN ROW", 2000),
			candidate(3, "PAGO DEBITO COPEC", 32100),
		},
		Strategy: "table",
		Mode:     document.ModeSecondary,
	}, nil)
	f.repo.failOn["BROKEN ROW"] = true

	result, err := f.svc.ImportStatement(context.Background(), uuid.New(), "cartola.pdf", "application/pdf",
		strings.NewReader("%PDF-1.4 statement"), ImportOptions{Tags: []string{"cartola"}})
	require.NoError(t, err)

	assert.Equal(t, "%PDF-1.4 statement", f.parser.content)
	assert.Equal(t, f.repo.importID, result.ImportID)
	assert.Equal(t, 3, result.Extracted)
	assert.Equal(t, 2, result.RowsImported)
	assert.Equal(t, 1, result.RowsFailed)
	assert.Equal(t, int64(38090), result.Total.Amount())

	require.Len(t, f.repo.saved, 2)
	first := f.repo.saved[0]
	assert.Equal(t, int64(5990), first.AmountMinor)
	assert.Equal(t, "CLP", first.CurrencyCode)
	assert.Equal(t, "Starbucks", first.Merchant)
	assert.Equal(t, "credit", first.PaymentMethod)
	assert.Equal(t, []string{"cartola"}, f.repo.tags[0])

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(first.RawData, &raw))
	assert.Equal(t, "2024-03-01", raw["date"])

	require.NotNil(t, f.repo.completed)
	assert.Equal(t, repository.ImportSummary{
		TransactionsCount: 2,
		TotalAmountMinor:  38090,
		Strategy:          "table",
		AccessMode:        "secondary",
	}, *f.repo.completed)
	assert.Empty(t, f.repo.failedWith)
	assert.Equal(t, 0, f.uploadsLeft(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Imports.WithLabelValues("completed")))
}

func TestImportStatement_AppliesMerchantOverrides(t *testing.T) {
	f := newFixture(t, &parser.ParseResult{
		Candidates: []parser.Candidate{candidate(1, "COMPRA CAFE HAITI", 2500)},
		Strategy:   "line_scan",
	}, nil)
	overrideID := uuid.New()
	overrides := &fakeOverrides{overrides: []normalizer.MerchantOverride{
		{ID: overrideID, MatchPattern: "cafe haiti", MatchType: normalizer.MatchContains, MerchantName: "Café Haití"},
	}}
	f.svc.WithOverrides(overrides)

	_, err := f.svc.ImportStatement(context.Background(), uuid.New(), "a.pdf", "application/pdf",
		strings.NewReader("%PDF"), ImportOptions{})
	require.NoError(t, err)

	require.Len(t, f.repo.saved, 1)
	assert.Equal(t, "Café Haití", f.repo.saved[0].Merchant)
	assert.Equal(t, []uuid.UUID{overrideID}, overrides.recorded)
}

func TestImportStatement_Failures(t *testing.T) {
	accessErr := &parser.Error{
		Kind: parser.KindDocumentAccess,
		Path: "locked.pdf",
		Err:  &document.AccessError{Path: "locked.pdf", Err: document.ErrPasswordRequired},
	}

	completeErr := errors.New("connection reset")

	tests := []struct {
		name        string
		result      *parser.ParseResult
		parseErr    error
		completeErr error
		opts        ImportOptions
		sentinel    error
	}{
		{
			name:     "document cannot be opened",
			parseErr: accessErr,
			sentinel: parser.ErrDocumentAccess,
		},
		{
			name:     "empty statement when transactions are required",
			result:   &parser.ParseResult{},
			opts:     ImportOptions{RequireTransactions: true},
			sentinel: parser.ErrNoTransactionsFound,
		},
		{
			name:        "batch cannot be completed",
			result:      &parser.ParseResult{Candidates: []parser.Candidate{candidate(1, "STARBUCKS CAFE", 5990)}},
			completeErr: completeErr,
			sentinel:    completeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.result, tt.parseErr)
			f.repo.completeErr = tt.completeErr

			result, err := f.svc.ImportStatement(context.Background(), uuid.New(), "locked.pdf", "application/pdf",
				strings.NewReader("%PDF"), tt.opts)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.sentinel)

			assert.Equal(t, err.Error(), f.repo.failedWith)
			assert.Nil(t, f.repo.completed)
			assert.Equal(t, 0, f.uploadsLeft(t))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Imports.WithLabelValues("failed")))
		})
	}
}

func TestImportStatement_EmptyIsCompleted(t *testing.T) {
	f := newFixture(t, &parser.ParseResult{}, nil)

	result, err := f.svc.ImportStatement(context.Background(), uuid.New(), "empty.pdf", "application/pdf",
		strings.NewReader("%PDF"), ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.RowsImported)
	require.NotNil(t, f.repo.completed)
	assert.Equal(t, 0, f.repo.completed.TransactionsCount)
}

func TestImportStatement_UploadTooLarge(t *testing.T) {
	f := newFixture(t, &parser.ParseResult{}, nil)

	_, err := f.svc.ImportStatement(context.Background(), uuid.New(), "big.pdf", "application/pdf",
		strings.NewReader(strings.Repeat("x", 2<<20)), ImportOptions{})
	assert.ErrorIs(t, err, storage.ErrFileTooLarge)
	assert.Nil(t, f.repo.completed)
	assert.Empty(t, f.repo.failedWith)
}

func TestListImports(t *testing.T) {
	f := newFixture(t, nil, nil)
	userID := uuid.New()

	imports, err := f.svc.ListImports(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, userID, imports[0].UserID)
}
