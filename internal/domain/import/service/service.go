// Package service provides the import orchestration logic.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
	"github.com/FACorreiaa/bankountable/internal/domain/import/parser"
	"github.com/FACorreiaa/bankountable/internal/domain/import/repository"
	"github.com/FACorreiaa/bankountable/pkg/metrics"
	"github.com/FACorreiaa/bankountable/pkg/money"
	"github.com/FACorreiaa/bankountable/pkg/storage"
)

// StatementParser extracts transactions from a stored statement file.
type StatementParser interface {
	ParseFile(ctx context.Context, path string) (*parser.ParseResult, error)
}

// OverrideSource provides a user's merchant corrections.
type OverrideSource interface {
	GetOverridesForUser(ctx context.Context, userID uuid.UUID) ([]normalizer.MerchantOverride, error)
	RecordMatch(ctx context.Context, id uuid.UUID) error
}

// ImportOptions allows callers to adjust a single import.
type ImportOptions struct {
	// RequireTransactions turns an empty statement into a failed import.
	RequireTransactions bool
	// Tags are attached to every imported transaction.
	Tags []string
}

// ImportResult contains the result of an import operation
type ImportResult struct {
	ImportID     uuid.UUID    `json:"import_id"`
	Strategy     string       `json:"strategy,omitempty"`
	AccessMode   string       `json:"access_mode,omitempty"`
	Extracted    int          `json:"extracted"`
	RowsImported int          `json:"transactions_imported"`
	RowsFailed   int          `json:"transactions_failed"`
	Total        *money.Money `json:"total"`
}

// ImportService stores uploaded statements, parses them and persists the
// extracted transactions as an import batch.
type ImportService struct {
	repo      repository.ImportRepository
	storage   storage.Storage
	parser    StatementParser
	overrides OverrideSource // optional
	metrics   *metrics.Metrics
	currency  string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewImportService creates a new import service
func NewImportService(
	repo repository.ImportRepository,
	store storage.Storage,
	p StatementParser,
	currencyCode string,
	logger *slog.Logger,
) *ImportService {
	return &ImportService{
		repo:     repo,
		storage:  store,
		parser:   p,
		currency: currencyCode,
		logger:   logger,
		tracer:   otel.Tracer("bankountable/import"),
	}
}

// WithOverrides applies per-user merchant overrides before persisting.
func (s *ImportService) WithOverrides(o OverrideSource) *ImportService {
	s.overrides = o
	return s
}

func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// ImportStatement saves the upload, parses it and stores every extracted
// transaction. The uploaded file is deleted whatever the outcome. Parse
// failures are returned as *parser.Error after the batch is marked failed.
func (s *ImportService) ImportStatement(
	ctx context.Context,
	userID uuid.UUID,
	fileName, contentType string,
	r io.Reader,
	opts ImportOptions,
) (result *ImportResult, err error) {
	ctx, span := s.tracer.Start(ctx, "import.ImportStatement",
		trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "import failed")
		}
	}()

	info, err := s.storage.Upload(ctx, userID, fileName, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	defer s.discardUpload(ctx, userID, info.ID)

	path, err := s.storage.LocalPath(ctx, userID, info.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to locate upload: %w", err)
	}

	imp, err := s.repo.CreateImport(ctx, userID, fileName, s.currency)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("import.id", imp.ID.String()))

	parsed, err := s.parser.ParseFile(ctx, path)
	if err != nil {
		s.failImport(ctx, imp.ID, err)
		return nil, err
	}
	if len(parsed.Candidates) == 0 && opts.RequireTransactions {
		err = &parser.Error{Kind: parser.KindNoTransactionsFound, Path: fileName}
		s.failImport(ctx, imp.ID, err)
		return nil, err
	}

	result, err = s.persist(ctx, userID, imp.ID, parsed, opts.Tags)
	if err != nil {
		s.failImport(ctx, imp.ID, err)
		return nil, err
	}

	err = s.repo.CompleteImport(ctx, imp.ID, repository.ImportSummary{
		TransactionsCount: result.RowsImported,
		TotalAmountMinor:  result.Total.Amount(),
		Strategy:          result.Strategy,
		AccessMode:        result.AccessMode,
	})
	if err != nil {
		s.failImport(ctx, imp.ID, err)
		return nil, err
	}
	s.metrics.ObserveImport(string(repository.ImportStatusCompleted))

	s.logger.Info("Import completed",
		slog.String("import_id", imp.ID.String()),
		slog.String("strategy", result.Strategy),
		slog.Int("extracted", result.Extracted),
		slog.Int("imported", result.RowsImported),
		slog.Int("failed", result.RowsFailed),
	)
	return result, nil
}

// persist saves candidates one by one. A failed save is logged and skipped.
func (s *ImportService) persist(
	ctx context.Context,
	userID, importID uuid.UUID,
	parsed *parser.ParseResult,
	tags []string,
) (*ImportResult, error) {
	result := &ImportResult{
		ImportID:   importID,
		Strategy:   parsed.Strategy,
		AccessMode: string(parsed.Mode),
		Extracted:  len(parsed.Candidates),
		Total:      money.Zero(s.currency),
	}

	overrides := s.loadOverrides(ctx, userID)

	for i, c := range parsed.Candidates {
		if o := normalizer.MatchOverride(overrides, c.Description); o != nil {
			c.Merchant = o.MerchantName
			if err := s.overrides.RecordMatch(ctx, o.ID); err != nil {
				s.logger.Warn("Failed to record override match", slog.Any("error", err))
			}
		}

		amount, err := money.NewFromDecimal(c.Amount, s.currency)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to encode transaction: %w", err)
		}

		_, err = s.repo.CreateTransaction(ctx, &repository.Transaction{
			UserID:        userID,
			ImportID:      importID,
			PostedAt:      c.Date,
			Description:   c.Description,
			Merchant:      c.Merchant,
			AmountMinor:   amount.Amount(),
			CurrencyCode:  amount.Currency(),
			PaymentMethod: string(c.PaymentMethod),
			RawData:       raw,
		}, tags)
		if err != nil {
			result.RowsFailed++
			s.logger.Warn("Failed to save transaction",
				slog.String("import_id", importID.String()),
				slog.Int("index", i),
				slog.Any("error", err),
			)
			continue
		}

		result.RowsImported++
		if result.Total, err = result.Total.Add(amount); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *ImportService) loadOverrides(ctx context.Context, userID uuid.UUID) []normalizer.MerchantOverride {
	if s.overrides == nil {
		return nil
	}
	overrides, err := s.overrides.GetOverridesForUser(ctx, userID)
	if err != nil {
		s.logger.Warn("Failed to load merchant overrides", slog.Any("error", err))
		return nil
	}
	return overrides
}

func (s *ImportService) failImport(ctx context.Context, importID uuid.UUID, cause error) {
	s.metrics.ObserveImport(string(repository.ImportStatusFailed))
	if err := s.repo.FailImport(context.WithoutCancel(ctx), importID, cause.Error()); err != nil {
		s.logger.Error("Failed to mark import as failed",
			slog.String("import_id", importID.String()),
			slog.Any("error", err),
		)
	}
}

func (s *ImportService) discardUpload(ctx context.Context, userID, fileID uuid.UUID) {
	if err := s.storage.Delete(context.WithoutCancel(ctx), userID, fileID); err != nil {
		s.logger.Warn("Failed to delete upload",
			slog.String("file_id", fileID.String()),
			slog.Any("error", err),
		)
	}
}

// ListImports returns the user's latest import batches.
func (s *ImportService) ListImports(ctx context.Context, userID uuid.UUID) ([]*repository.Import, error) {
	return s.repo.ListImports(ctx, userID, repository.DefaultListLimit)
}
