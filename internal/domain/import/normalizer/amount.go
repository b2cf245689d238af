package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Bounds is the accepted magnitude range for a transaction amount. Values
// under Min are codes or stray numbers; values over Max are running balances.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// DefaultBounds returns the CLP defaults: 1.000 to 10.000.000.
func DefaultBounds() Bounds {
	return Bounds{
		Min: decimal.NewFromInt(1000),
		Max: decimal.NewFromInt(10_000_000),
	}
}

// Contains reports whether Min <= |d| <= Max.
func (b Bounds) Contains(d decimal.Decimal) bool {
	abs := d.Abs()
	return abs.GreaterThanOrEqual(b.Min) && abs.LessThanOrEqual(b.Max)
}

var (
	thousandsGroupPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+`)

	// CLP must come before CL.
	currencyStripper = strings.NewReplacer("$", "", "€", "", "CLP", "", "CL", "")
)

// HasThousandsGroup reports whether s contains a period-grouped number like 1.234.
func HasThousandsGroup(s string) bool {
	return thousandsGroupPattern.MatchString(cleanAmount(s))
}

// ParseAmount parses a CLP-style amount ("$12.500", "123.456,78").
// Strings without a period thousands group are rejected, so "21" or "5" never
// become amounts. The result is signed; it is rejected when |value| < floor.
func ParseAmount(s string, floor decimal.Decimal) (decimal.Decimal, bool) {
	cleaned := cleanAmount(s)
	if cleaned == "" || !thousandsGroupPattern.MatchString(cleaned) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(NormalizeSeparators(cleaned))
	if err != nil {
		return decimal.Zero, false
	}
	if d.Abs().LessThan(floor) {
		return decimal.Zero, false
	}
	return d, true
}

// ParseLooseAmount accepts loosely grouped numbers ("5990", "5.990", "-1.234,5").
// Every period is a thousands separator and a comma is the decimal mark.
func ParseLooseAmount(s string) (decimal.Decimal, bool) {
	cleaned := cleanAmount(s)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// NormalizeSeparators rewrites a locale-formatted number into a plain decimal
// string:
//
//	'.' and ',' present        -> '.' thousands, ',' decimal  (1.234,56 -> 1234.56)
//	only '.', last group <= 2  -> last '.' is decimal          (1.234.56 -> 1234.56)
//	only '.', otherwise        -> '.' thousands                 (123.456  -> 123456)
//	only ','                   -> ',' decimal                   (1234,5   -> 1234.5)
func NormalizeSeparators(s string) string {
	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		return strings.ReplaceAll(s, ",", ".")
	case hasDot:
		last := strings.LastIndex(s, ".")
		if len(s)-last-1 <= 2 {
			return strings.ReplaceAll(s[:last], ".", "") + s[last:]
		}
		return strings.ReplaceAll(s, ".", "")
	case hasComma:
		return strings.ReplaceAll(s, ",", ".")
	default:
		return s
	}
}

func cleanAmount(s string) string {
	s = currencyStripper.Replace(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
