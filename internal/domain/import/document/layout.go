package document

import (
	"math"
	"sort"
	"strings"
)

const (
	// lineTolerance is the vertical distance, in points, within which glyphs share a line.
	lineTolerance = 2.0
	// Horizontal gaps are scaled by font size.
	wordGapFactor = 0.2
	cellGapFactor = 1.5
	// columnSlack widens column intervals when merging overlapping cells.
	columnSlack     = 1.0
	defaultFontSize = 10.0
)

// Glyph is a positioned run of text as reported by a PDF content stream.
// Y grows upward, as in PDF user space.
type Glyph struct {
	X, Y float64
	W    float64
	Size float64
	S    string
}

// Cell is horizontally contiguous text on one line.
type Cell struct {
	X0, X1 float64
	Text   string
}

// Line is a visual line of text, cells ordered left to right.
type Line struct {
	Y     float64
	Cells []Cell
}

// Text joins the line's cells with single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Cells))
	for i, c := range l.Cells {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

// BuildLines groups glyphs into lines top to bottom, then splits each line
// into words and cells by the horizontal gaps between glyphs.
func BuildLines(glyphs []Glyph) []Line {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := make([]Glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var (
		lines []Line
		group []Glyph
		lineY float64
	)
	flush := func() {
		if line, ok := buildLine(lineY, group); ok {
			lines = append(lines, line)
		}
		group = group[:0]
	}
	for _, g := range sorted {
		if len(group) > 0 && math.Abs(g.Y-lineY) > lineTolerance {
			flush()
		}
		if len(group) == 0 {
			lineY = g.Y
		}
		group = append(group, g)
	}
	flush()

	return lines
}

func buildLine(y float64, glyphs []Glyph) (Line, bool) {
	sorted := make([]Glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var (
		cells        []Cell
		cur          *strings.Builder
		curX0, end   float64
		pendingSpace bool
	)
	closeCell := func() {
		if cur == nil {
			return
		}
		if text := strings.TrimSpace(cur.String()); text != "" {
			cells = append(cells, Cell{X0: curX0, X1: end, Text: text})
		}
		cur = nil
	}

	for _, g := range sorted {
		size := g.Size
		if size <= 0 {
			size = defaultFontSize
		}
		width := g.W
		if width <= 0 {
			width = 0.5 * size * float64(len([]rune(g.S)))
		}

		if strings.TrimSpace(g.S) == "" {
			if cur != nil {
				pendingSpace = true
			}
			continue
		}

		gap := g.X - end
		switch {
		case cur == nil:
			cur = &strings.Builder{}
			curX0 = g.X
		case gap > cellGapFactor*size:
			closeCell()
			cur = &strings.Builder{}
			curX0 = g.X
		case pendingSpace || gap > wordGapFactor*size:
			cur.WriteByte(' ')
		}
		pendingSpace = false

		cur.WriteString(g.S)
		end = math.Max(end, g.X+width)
	}
	closeCell()

	if len(cells) == 0 {
		return Line{}, false
	}
	return Line{Y: y, Cells: cells}, true
}

// LinesText renders lines as newline-separated text.
func LinesText(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, "\n")
}

// DetectTables turns every run of at least two consecutive multi-cell lines
// into a table. Columns are the union of overlapping cell intervals; a cell
// lands in the column containing its center.
func DetectTables(lines []Line) []Table {
	var (
		tables []Table
		run    []Line
	)
	flush := func() {
		if len(run) >= 2 {
			tables = append(tables, buildTable(run))
		}
		run = nil
	}
	for _, l := range lines {
		if len(l.Cells) >= 2 {
			run = append(run, l)
			continue
		}
		flush()
	}
	flush()
	return tables
}

type interval struct{ x0, x1 float64 }

func buildTable(lines []Line) Table {
	var spans []interval
	for _, l := range lines {
		for _, c := range l.Cells {
			spans = append(spans, interval{c.X0, c.X1})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })

	var cols []interval
	for _, s := range spans {
		if n := len(cols); n > 0 && s.x0 <= cols[n-1].x1+columnSlack {
			cols[n-1].x1 = math.Max(cols[n-1].x1, s.x1)
			continue
		}
		cols = append(cols, s)
	}

	table := make(Table, 0, len(lines))
	for _, l := range lines {
		row := make([]*string, len(cols))
		for _, c := range l.Cells {
			idx := columnFor(cols, (c.X0+c.X1)/2)
			if row[idx] != nil {
				joined := *row[idx] + " " + c.Text
				row[idx] = &joined
				continue
			}
			text := c.Text
			row[idx] = &text
		}
		table = append(table, row)
	}
	return table
}

func columnFor(cols []interval, center float64) int {
	for i, c := range cols {
		if center >= c.x0-columnSlack && center <= c.x1+columnSlack {
			return i
		}
	}
	// unreachable for centers of cells that built the intervals
	return len(cols) - 1
}
