package document

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFOpener reads PDFs with ledongthuc/pdf and rebuilds tables from glyph positions.
type PDFOpener struct{}

// Open opens the PDF at path. The passphrase is offered once; a rejected or
// missing one, or an encryption scheme the reader cannot handle, is reported
// as ErrPasswordRequired so that the decrypt-in-place strategy can take over.
func (PDFOpener) Open(path, passphrase string) (doc Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			f.Close()
			doc, err = nil, fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	offered := false
	reader, err := pdf.NewReaderEncrypted(f, st.Size(), func() string {
		if offered {
			return ""
		}
		offered = true
		return passphrase
	})
	if err != nil {
		f.Close()
		if isPasswordError(err) {
			return nil, fmt.Errorf("%w: %v", ErrPasswordRequired, err)
		}
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}

	return &pdfDocument{file: f, reader: reader}, nil
}

func isPasswordError(err error) bool {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") ||
		strings.Contains(msg, "encrypt") ||
		strings.Contains(msg, "decrypt")
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

// Page extracts text and tables from page n. The reader panics on broken
// content streams; that is returned as an error.
func (d *pdfDocument) Page(n int) (page Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read page %d: %v", n, r)
		}
	}()

	p := d.reader.Page(n)
	if p.V.IsNull() {
		return Page{Number: n}, nil
	}

	content := p.Content()
	glyphs := make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}

	lines := BuildLines(glyphs)
	return Page{
		Number: n,
		Text:   LinesText(lines),
		Tables: DetectTables(lines),
	}, nil
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
