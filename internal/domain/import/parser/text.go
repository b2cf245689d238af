package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
)

var (
	// lineAmountPattern only accepts period-grouped thousands, optionally signed
	// and with a comma decimal part. The first group keeps "98765.432" from
	// yielding "765.432".
	lineAmountPattern = regexp.MustCompile(`(^|[^\d.,])\$?\s*(-?\d{1,3}(?:\.\d{3})+(?:,\d+)?)`)

	// alternativeDatePattern anchors a "date description amount" entry. A date
	// may not continue a longer digit run.
	alternativeDatePattern = regexp.MustCompile(
		`(?:^|[^\d])(\d{4}[/-]\d{1,2}[/-]\d{1,2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})[ \t]+`,
	)

	// alternativeAmountPattern ends an entry. The amount must end at whitespace
	// or end of line so "5990" is not cut to "599".
	alternativeAmountPattern = regexp.MustCompile(`[ \t](\$?[ \t]*-?\d+(?:\.\d{3})*(?:,\d+)?)(?:[ \t]|$)`)
)

func pagesText(pages []document.Page) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}

// LineScanStrategy walks the text line by line. A line with a date sets the
// current date; a line with a valid amount emits a candidate dated with the
// current date, using the largest amount on the line.
type LineScanStrategy struct {
	bounds  normalizer.Bounds
	builder *Builder
}

func NewLineScanStrategy(bounds normalizer.Bounds, builder *Builder) *LineScanStrategy {
	return &LineScanStrategy{bounds: bounds, builder: builder}
}

func (s *LineScanStrategy) Name() string { return "line_scan" }

func (s *LineScanStrategy) Extract(pages []document.Page) []Candidate {
	var (
		out         []Candidate
		currentDate civil.Date
		haveDate    bool
	)

	for _, line := range strings.Split(pagesText(pages), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m, ok := normalizer.FindDate(line); ok {
			currentDate, haveDate = m.Date, true
		}

		amount, ok := s.largestAmount(line)
		if !ok || !haveDate {
			continue
		}

		desc := lineAmountPattern.ReplaceAllString(normalizer.StripDates(line), "${1} ")
		desc = strings.Join(strings.Fields(desc), " ")
		if utf8.RuneCountInString(desc) < minDescLength {
			continue
		}
		out = append(out, s.builder.Build(currentDate, desc, amount))
	}
	return out
}

// largestAmount returns the in-bounds amount with the greatest magnitude.
// The first one wins a tie.
func (s *LineScanStrategy) largestAmount(line string) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, m := range lineAmountPattern.FindAllStringSubmatch(line, -1) {
		v, ok := normalizer.ParseAmount(m[2], s.bounds.Min)
		if !ok || !s.bounds.Contains(v) {
			continue
		}
		if !found || v.Abs().GreaterThan(best.Abs()) {
			best, found = v, true
		}
	}
	return best, found
}

// AlternativeStrategy is the last resort: "date description amount" entries
// read line by line, with loose amount grouping. The description ends at the
// first amount that passes the bounds.
type AlternativeStrategy struct {
	bounds  normalizer.Bounds
	builder *Builder
}

func NewAlternativeStrategy(bounds normalizer.Bounds, builder *Builder) *AlternativeStrategy {
	return &AlternativeStrategy{bounds: bounds, builder: builder}
}

func (s *AlternativeStrategy) Name() string { return "alternative" }

func (s *AlternativeStrategy) Extract(pages []document.Page) []Candidate {
	var out []Candidate
	for _, line := range strings.Split(pagesText(pages), "\n") {
		out = s.extractLine(line, out)
	}
	return out
}

func (s *AlternativeStrategy) extractLine(line string, out []Candidate) []Candidate {
	// pos always sits on whitespace or end of line, so "^" in the date
	// pattern never follows a digit.
	for pos := 0; pos < len(line); {
		loc := alternativeDatePattern.FindStringSubmatchIndex(line[pos:])
		if loc == nil {
			break
		}
		dateEnd := pos + loc[3]
		date, ok := normalizer.ParseDate(line[pos+loc[2] : dateEnd])
		if !ok {
			pos = dateEnd
			continue
		}
		c, end, ok := s.entry(line, pos+loc[1], date)
		if !ok {
			pos = dateEnd
			continue
		}
		out = append(out, c)
		pos = end
	}
	return out
}

// entry finds the first acceptable amount after from. It returns the byte
// offset just past the amount.
func (s *AlternativeStrategy) entry(line string, from int, date civil.Date) (Candidate, int, bool) {
	for off := from; off < len(line); {
		loc := alternativeAmountPattern.FindStringSubmatchIndex(line[off:])
		if loc == nil {
			break
		}
		start := off + loc[0]
		desc := strings.TrimSpace(line[from:start])
		if amount, ok := s.accept(desc, line[off+loc[2]:off+loc[3]]); ok {
			return s.builder.Build(date, desc, amount), off + loc[3], true
		}
		off = start + 1
	}
	return Candidate{}, 0, false
}

func (s *AlternativeStrategy) accept(desc, amountText string) (decimal.Decimal, bool) {
	if utf8.RuneCountInString(desc) <= minDescLength {
		return decimal.Decimal{}, false
	}
	amount, ok := normalizer.ParseLooseAmount(amountText)
	if !ok {
		return decimal.Decimal{}, false
	}
	abs := amount.Abs()
	if abs.LessThan(s.bounds.Min) || abs.GreaterThanOrEqual(s.bounds.Max) {
		return decimal.Decimal{}, false
	}
	return amount, true
}
