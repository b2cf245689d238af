package parser

import (
	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
)

// Strategy extracts candidates from the pages of one document.
type Strategy interface {
	Name() string
	Extract(pages []document.Page) []Candidate
}

// Options configures the extraction strategies.
type Options struct {
	Bounds    normalizer.Bounds
	Merchants *normalizer.MerchantExtractor
}

// DefaultOptions uses the CLP bounds and the built-in merchant list.
func DefaultOptions() Options {
	return Options{Bounds: normalizer.DefaultBounds()}
}

// Chain runs strategies in order and stops at the first that yields anything.
type Chain []Strategy

// NewChain returns the table, line-scan and alternative-pattern strategies.
func NewChain(opts Options) Chain {
	b := NewBuilder(opts.Merchants)
	return Chain{
		NewTableStrategy(opts.Bounds, b),
		NewLineScanStrategy(opts.Bounds, b),
		NewAlternativeStrategy(opts.Bounds, b),
	}
}

// Run returns the name of the strategy that produced candidates and its
// output. Both are empty when every strategy comes up dry.
func (c Chain) Run(pages []document.Page) (string, []Candidate) {
	for _, s := range c {
		if cands := s.Extract(pages); len(cands) > 0 {
			return s.Name(), cands
		}
	}
	return "", nil
}
