package parser

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	"github.com/FACorreiaa/bankountable/pkg/metrics"
)

// DocumentAccess opens a document, recovering it from passphrases if needed.
type DocumentAccess interface {
	Open(path string) (*document.Opened, error)
}

// ParseResult is the outcome of parsing one document.
type ParseResult struct {
	Candidates []Candidate   `json:"transactions"`
	Strategy   string        `json:"strategy,omitempty"`
	Pages      int           `json:"pages"`
	Extracted  int           `json:"extracted"`
	Mode       document.Mode `json:"access_mode,omitempty"`
}

// Parser turns statement files into reconciled candidates.
type Parser struct {
	access  DocumentAccess
	chain   Chain
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewParser(access DocumentAccess, chain Chain, logger *slog.Logger) *Parser {
	return &Parser{
		access: access,
		chain:  chain,
		logger: logger,
		tracer: otel.Tracer("bankountable/parser"),
	}
}

// WithMetrics records parse outcomes on m.
func (p *Parser) WithMetrics(m *metrics.Metrics) *Parser {
	p.metrics = m
	return p
}

// ParseFile opens the document at path and extracts its transactions. The
// document is closed on every path. Zero candidates is not an error.
func (p *Parser) ParseFile(ctx context.Context, path string) (result *ParseResult, err error) {
	_, span := p.tracer.Start(ctx, "parser.ParseFile",
		trace.WithAttributes(attribute.String("document.name", filepath.Base(path))))
	defer span.End()

	start := time.Now()
	defer func() {
		if err == nil {
			return
		}
		kind, _ := KindOf(err)
		p.metrics.ObserveFailure(string(kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		p.logger.Error("Failed to parse document",
			slog.String("file", filepath.Base(path)),
			slog.String("kind", string(kind)),
			slog.Any("error", err))
	}()

	opened, err := p.access.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindDocumentAccess, Path: path, Err: err}
	}
	defer func() {
		if cerr := opened.Document.Close(); cerr != nil {
			p.logger.Warn("Failed to close document", slog.String("file", filepath.Base(path)), slog.Any("error", cerr))
		}
	}()

	pages, err := loadPages(opened.Document)
	if err != nil {
		return nil, &Error{Kind: KindMalformedDocument, Path: path, Err: err}
	}

	result, err = p.ParsePages(pages)
	if err != nil {
		return nil, &Error{Kind: KindMalformedDocument, Path: path, Err: err}
	}
	result.Mode = opened.Mode

	span.SetAttributes(
		attribute.String("parser.strategy", result.Strategy),
		attribute.String("document.access_mode", string(result.Mode)),
		attribute.Int("parser.transactions", len(result.Candidates)),
	)
	p.metrics.ObserveParse(result.Strategy, string(result.Mode), len(result.Candidates), time.Since(start))
	p.logger.Info("Parsed document",
		slog.String("file", filepath.Base(path)),
		slog.String("strategy", result.Strategy),
		slog.String("access_mode", string(result.Mode)),
		slog.Int("pages", result.Pages),
		slog.Int("extracted", result.Extracted),
		slog.Int("transactions", len(result.Candidates)))
	return result, nil
}

// ParsePages runs the strategy chain and the global reconciliation over
// already loaded pages.
func (p *Parser) ParsePages(pages []document.Page) (result *ParseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("extraction panicked: %v", r)
		}
	}()

	strategy, cands := p.chain.Run(pages)
	if strategy != "" {
		p.logger.Debug("Strategy produced transactions", slog.String("strategy", strategy), slog.Int("count", len(cands)))
	}
	return &ParseResult{
		Candidates: Reconcile(cands),
		Strategy:   strategy,
		Pages:      len(pages),
		Extracted:  len(cands),
	}, nil
}

func loadPages(doc document.Document) ([]document.Page, error) {
	n := doc.NumPages()
	pages := make([]document.Page, 0, n)
	for i := 1; i <= n; i++ {
		page, err := doc.Page(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}
