package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/FACorreiaa/bankountable/internal/domain/import/sniffer"
)

// CSVOpener reads delimited text exports as a single page holding one table.
// CSV files are never encrypted, so the passphrase is ignored.
type CSVOpener struct{}

func (CSVOpener) Open(path, _ string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return &csvDocument{data: sniffer.TrimBOM(data)}, nil
}

type csvDocument struct {
	data []byte
}

func (d *csvDocument) NumPages() int { return 1 }

func (d *csvDocument) Page(n int) (Page, error) {
	if n != 1 {
		return Page{}, fmt.Errorf("page %d out of range", n)
	}

	delim, err := sniffer.DetectDelimiter(d.data)
	if err != nil {
		// single column export
		delim = ','
	}

	reader := csv.NewReader(bytes.NewReader(d.data))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rowsPage(n, rows), nil
}

func (d *csvDocument) Close() error { return nil }
