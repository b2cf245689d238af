package document

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/bankountable/internal/domain/import/sniffer"
)

// XLSXOpener reads workbooks with excelize. Each sheet becomes a page
// holding a single table.
type XLSXOpener struct{}

// Open opens the workbook at path. Password-protected workbooks are compound
// documents; without a passphrase, or with a wrong one, they report
// ErrPasswordRequired.
func (XLSXOpener) Open(path, passphrase string) (Document, error) {
	format, err := sniffer.SniffFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff workbook: %w", err)
	}
	encrypted := format == sniffer.FormatOLE
	if encrypted && passphrase == "" {
		return nil, ErrPasswordRequired
	}

	f, err := excelize.OpenFile(path, excelize.Options{Password: passphrase})
	if err != nil {
		if encrypted {
			return nil, fmt.Errorf("%w: %v", ErrPasswordRequired, err)
		}
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	return &workbookDocument{file: f, sheets: f.GetSheetList()}, nil
}

type workbookDocument struct {
	file   *excelize.File
	sheets []string
}

func (d *workbookDocument) NumPages() int {
	return len(d.sheets)
}

func (d *workbookDocument) Page(n int) (Page, error) {
	if n < 1 || n > len(d.sheets) {
		return Page{}, fmt.Errorf("page %d out of range", n)
	}
	rows, err := d.file.GetRows(d.sheets[n-1])
	if err != nil {
		return Page{}, fmt.Errorf("failed to read sheet %s: %w", d.sheets[n-1], err)
	}
	return rowsPage(n, rows), nil
}

func (d *workbookDocument) Close() error {
	return d.file.Close()
}

// rowsPage builds a page whose text is the rows joined cell by cell.
func rowsPage(n int, rows [][]string) Page {
	page := Page{Number: n}
	if len(rows) == 0 {
		return page
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	}
	page.Text = strings.Join(lines, "\n")
	page.Tables = []Table{NewTable(rows)}
	return page
}
