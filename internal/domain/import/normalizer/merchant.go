package normalizer

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxMerchantLength = 50

// defaultMerchants is checked in order; the first entry present wins.
var defaultMerchants = []string{
	"STARBUCKS", "RAPPI", "UBER EATS", "PEDIDOS YA", "MCDONALDS",
	"SUBWAY", "FARMACIA AHUMADA", "SHELL", "COPEC", "LIDER",
	"JUMBO", "SANTANDER", "FALABELLA", "RIPLEY", "PARIS",
}

// DefaultMerchants returns a copy of the built-in merchant list.
func DefaultMerchants() []string {
	out := make([]string, len(defaultMerchants))
	copy(out, defaultMerchants)
	return out
}

// MerchantExtractor finds a known merchant name inside a description.
type MerchantExtractor struct {
	names   []string
	matcher *ahocorasick.Matcher
}

// NewMerchantExtractor builds an extractor over names. Names are matched
// case-insensitively and earlier names take priority.
func NewMerchantExtractor(names []string) *MerchantExtractor {
	upper := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(Fold(n)))
		if n != "" {
			upper = append(upper, n)
		}
	}
	return &MerchantExtractor{
		names:   upper,
		matcher: ahocorasick.NewStringMatcher(upper),
	}
}

var defaultExtractor = NewMerchantExtractor(defaultMerchants)

// ExtractMerchant uses the built-in merchant list.
func ExtractMerchant(description string) string {
	return defaultExtractor.Extract(description)
}

// Extract returns the title-cased known merchant found in description.
// Without a known merchant it falls back to the first word of the original
// description, cut to 50 characters. An empty description yields "".
func (e *MerchantExtractor) Extract(description string) string {
	desc := strings.ToUpper(Fold(description))

	best := -1
	for _, idx := range e.matcher.MatchThreadSafe([]byte(desc)) {
		if best == -1 || idx < best {
			best = idx
		}
	}
	if best >= 0 {
		return cases.Title(language.Und).String(e.names[best])
	}

	words := strings.Fields(description)
	if len(words) == 0 {
		return ""
	}
	return Truncate(words[0], maxMerchantLength)
}
