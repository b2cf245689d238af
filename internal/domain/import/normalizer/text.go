// Package normalizer turns raw statement text into typed values: dates,
// amounts, merchants and payment methods. Every function here is pure and
// safe for concurrent use.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips diacritics so "Descripción" and "DESCRIPCION" compare equal
// once lowercased.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FoldLower is Fold followed by strings.ToLower.
func FoldLower(s string) string {
	return strings.ToLower(Fold(s))
}

// ContainsAny reports whether s contains any of the tokens.
func ContainsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
