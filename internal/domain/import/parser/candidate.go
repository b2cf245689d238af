// Package parser extracts bank statement transactions from opened documents.
// Strategies run in fallback order (tables, then line scan, then a single
// combined pattern) and every result is reconciled by DedupKey, keeping the
// largest amount.
package parser

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
)

const (
	maxDescriptionLength = 500
	dedupPrefixLength    = 100
)

// Candidate is a transaction extracted from a statement, before persistence.
type Candidate struct {
	Date          civil.Date               `json:"date"`
	Description   string                   `json:"description"`
	Merchant      string                   `json:"merchant,omitempty"`
	Amount        decimal.Decimal          `json:"amount"`
	PaymentMethod normalizer.PaymentMethod `json:"payment_method"`
}

// DedupKey identifies candidates that describe the same transaction.
type DedupKey struct {
	Date        civil.Date
	Description string
}

// Key returns the candidate's DedupKey: its date and the lowercased, trimmed
// first 100 characters of its description.
func (c Candidate) Key() DedupKey {
	prefix := normalizer.Truncate(c.Description, dedupPrefixLength)
	return DedupKey{
		Date:        c.Date,
		Description: strings.TrimSpace(strings.ToLower(prefix)),
	}
}

// Builder fills in the derived fields of a candidate.
type Builder struct {
	merchants *normalizer.MerchantExtractor
}

// NewBuilder creates a Builder. A nil extractor uses the built-in merchant list.
func NewBuilder(merchants *normalizer.MerchantExtractor) *Builder {
	if merchants == nil {
		merchants = normalizer.NewMerchantExtractor(normalizer.DefaultMerchants())
	}
	return &Builder{merchants: merchants}
}

// Build makes a candidate with a positive amount, a description capped at
// 500 characters, and merchant and payment method inferred from it.
func (b *Builder) Build(date civil.Date, description string, amount decimal.Decimal) Candidate {
	description = normalizer.Truncate(strings.TrimSpace(description), maxDescriptionLength)
	return Candidate{
		Date:          date,
		Description:   description,
		Merchant:      b.merchants.Extract(description),
		Amount:        amount.Abs(),
		PaymentMethod: normalizer.InferPaymentMethod(description),
	}
}
