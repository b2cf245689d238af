package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FACorreiaa/bankountable/internal/domain/import/document"
	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
)

const (
	// lastColumn resolves to the last cell of each row.
	lastColumn = -1

	inferenceSampleRows = 10
	minDateLength       = 5
	minDescLength       = 3
)

var (
	headerTokens = []string{"fecha", "descripcion", "monto", "importe"}

	dateHeaderTokens   = []string{"fecha", "fec"}
	descHeaderTokens   = []string{"descripcion", "concepto", "detalle", "glosa"}
	amountHeaderTokens = []string{"monto", "importe", "valor", "abono", "cargo"}
	balanceHeaderToken = "saldo"

	// Rows containing any of these are headers, balances or totals.
	noiseRowTokens = []string{"fecha", "descripcion", "monto", "importe", "saldo", "total"}

	descriptionStoplist = map[string]bool{
		"total":    true,
		"saldo":    true,
		"subtotal": true,
	}
)

// Columns maps table roles to column indices. Amount may be lastColumn.
type Columns struct {
	Date        int
	Description int
	Amount      int
}

func defaultColumns(width int) Columns {
	c := Columns{Date: 0, Description: 1, Amount: lastColumn}
	if width < 2 {
		c.Description = 0
	}
	return c
}

// required is the smallest row length that can hold every role.
func (c Columns) required() int {
	maxIdx := max(c.Date, c.Description, c.Amount)
	if c.Amount == lastColumn {
		maxIdx = max(maxIdx, 1)
	}
	return maxIdx + 1
}

// TableStrategy reads candidates from structured tables.
type TableStrategy struct {
	bounds  normalizer.Bounds
	builder *Builder
}

func NewTableStrategy(bounds normalizer.Bounds, builder *Builder) *TableStrategy {
	return &TableStrategy{bounds: bounds, builder: builder}
}

func (s *TableStrategy) Name() string { return "table" }

func (s *TableStrategy) Extract(pages []document.Page) []Candidate {
	var out []Candidate
	for _, page := range pages {
		for _, table := range page.Tables {
			if len(table) < 2 {
				continue
			}
			out = append(out, s.ExtractTable(table)...)
		}
	}
	return out
}

// ExtractTable infers the table's columns and returns its accepted rows,
// reconciled within the table.
func (s *TableStrategy) ExtractTable(table document.Table) []Candidate {
	rows := table
	cols, headerIdx, ok := InferColumns(table)
	if ok {
		rows = table[headerIdx+1:]
	}

	r := NewReconciler()
	for _, row := range rows {
		if c, ok := s.candidateFromRow(row, cols); ok {
			r.Add(c)
		}
	}
	return Reconcile(r.Candidates())
}

func (s *TableStrategy) candidateFromRow(row []*string, cols Columns) (Candidate, bool) {
	if isEmptyRow(row) || isNoiseRow(row) || len(row) < cols.required() {
		return Candidate{}, false
	}

	dateText := cellText(row, cols.Date)
	if utf8.RuneCountInString(dateText) < minDateLength {
		return Candidate{}, false
	}
	date, ok := normalizer.ParseDate(dateText)
	if !ok {
		return Candidate{}, false
	}

	desc := cellText(row, cols.Description)
	if !isUsableDescription(desc) {
		return Candidate{}, false
	}

	amountIdx := cols.Amount
	if amountIdx == lastColumn {
		amountIdx = len(row) - 1
	}
	amount, ok := normalizer.ParseAmount(cellText(row, amountIdx), s.bounds.Min)
	if !ok || !s.bounds.Contains(amount) {
		return Candidate{}, false
	}

	return s.builder.Build(date, desc, amount), true
}

// InferColumns locates the header row and maps its cells to roles. Without a
// header it samples the first rows to find the amount column. The returned
// bool reports whether a header was found; headerIdx is only meaningful then.
func InferColumns(table document.Table) (cols Columns, headerIdx int, found bool) {
	for i, row := range table {
		if isHeaderRow(row) {
			return columnsFromHeader(row), i, true
		}
	}
	return inferFromSample(table), -1, false
}

func isHeaderRow(row []*string) bool {
	for _, cell := range row {
		if cell != nil && normalizer.ContainsAny(normalizer.FoldLower(*cell), headerTokens) {
			return true
		}
	}
	return false
}

// columnsFromHeader assigns roles by keyword. A later matching column wins;
// balance columns never take a role.
func columnsFromHeader(header []*string) Columns {
	cols := Columns{Date: -2, Description: -2, Amount: -2}
	for i, cell := range header {
		if cell == nil {
			continue
		}
		h := normalizer.FoldLower(strings.TrimSpace(*cell))
		switch {
		case strings.Contains(h, balanceHeaderToken):
		case normalizer.ContainsAny(h, dateHeaderTokens):
			cols.Date = i
		case normalizer.ContainsAny(h, descHeaderTokens):
			cols.Description = i
		case normalizer.ContainsAny(h, amountHeaderTokens):
			cols.Amount = i
		}
	}

	def := defaultColumns(len(header))
	if cols.Date == -2 {
		cols.Date = def.Date
	}
	if cols.Description == -2 {
		cols.Description = def.Description
	}
	if cols.Amount == -2 {
		cols.Amount = def.Amount
	}
	return cols
}

// inferFromSample picks as amount column the one where at least 30% of the
// non-empty sampled cells hold a thousands-grouped number. Most matches
// wins; ties go to the rightmost column.
func inferFromSample(table document.Table) Columns {
	sample := table
	if len(sample) > inferenceSampleRows {
		sample = sample[:inferenceSampleRows]
	}

	width := 0
	for _, row := range sample {
		width = max(width, len(row))
	}
	cols := defaultColumns(width)

	best, bestCount := -1, 0
	for col := 0; col < width; col++ {
		nonEmpty, matches := 0, 0
		for _, row := range sample {
			v := cellText(row, col)
			if v == "" {
				continue
			}
			nonEmpty++
			if normalizer.HasThousandsGroup(v) {
				matches++
			}
		}
		if matches == 0 || matches*10 < nonEmpty*3 {
			continue
		}
		if matches >= bestCount {
			best, bestCount = col, matches
		}
	}
	if best >= 0 {
		cols.Amount = best
	}
	return cols
}

func cellText(row []*string, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(*row[i])
}

func isEmptyRow(row []*string) bool {
	for _, cell := range row {
		if cell != nil && strings.TrimSpace(*cell) != "" {
			return false
		}
	}
	return true
}

func isNoiseRow(row []*string) bool {
	parts := make([]string, 0, len(row))
	for _, cell := range row {
		if cell != nil {
			parts = append(parts, *cell)
		}
	}
	return normalizer.ContainsAny(normalizer.FoldLower(strings.Join(parts, " ")), noiseRowTokens)
}

// isUsableDescription rejects short text, bare numbers and summary labels.
func isUsableDescription(desc string) bool {
	if utf8.RuneCountInString(desc) < minDescLength {
		return false
	}
	if descriptionStoplist[strings.ToLower(desc)] {
		return false
	}
	return strings.IndexFunc(desc, unicode.IsLetter) >= 0
}
