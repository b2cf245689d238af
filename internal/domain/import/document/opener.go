package document

import (
	"fmt"

	"github.com/FACorreiaa/bankountable/internal/domain/import/sniffer"
)

// FormatOpener dispatches to the opener matching the file's leading bytes.
type FormatOpener struct {
	PDF  Opener
	XLSX Opener
	CSV  Opener
}

// NewFormatOpener returns an opener for PDF, XLSX and CSV statements.
func NewFormatOpener() *FormatOpener {
	return &FormatOpener{
		PDF:  PDFOpener{},
		XLSX: XLSXOpener{},
		CSV:  CSVOpener{},
	}
}

func (o *FormatOpener) Open(path, passphrase string) (Document, error) {
	format, err := sniffer.SniffFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect format: %w", err)
	}

	switch format {
	case sniffer.FormatPDF:
		return o.PDF.Open(path, passphrase)
	case sniffer.FormatXLSX, sniffer.FormatOLE:
		return o.XLSX.Open(path, passphrase)
	case sniffer.FormatCSV:
		return o.CSV.Open(path, passphrase)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
