// Package sniffer identifies statement file formats from their leading bytes
// and detects the delimiter of CSV/TSV exports.
package sniffer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Format is a statement container format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	// FormatOLE is a compound document; for statements this is a
	// password-protected workbook.
	FormatOLE     Format = "ole"
	FormatCSV     Format = "csv"
	FormatUnknown Format = "unknown"
)

const sniffLen = 512

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM  = []byte("\xEF\xBB\xBF")
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// Common statement header keywords, matched against lowercased lines.
var headerKeywords = []string{
	"fecha", "descripcion", "descripción", "detalle", "glosa", "concepto",
	"monto", "importe", "valor", "cargo", "abono", "saldo",
	"date", "description", "amount", "debit", "credit", "balance",
}

// DetectFormat classifies the leading bytes of a file.
func DetectFormat(head []byte) Format {
	trimmed := bytes.TrimPrefix(head, utf8BOM)
	switch {
	case len(trimmed) == 0:
		return FormatUnknown
	case bytes.HasPrefix(head, oleMagic):
		return FormatOLE
	case bytes.HasPrefix(head, zipMagic):
		return FormatXLSX
	// some producers emit a few junk bytes before the header
	case bytes.Contains(head[:min(len(head), 1024)], pdfMagic):
		return FormatPDF
	case looksLikeText(trimmed):
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// SniffFile reads the head of the file at path and classifies it.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("failed to read file head: %w", err)
	}
	if n == 0 {
		return FormatUnknown, ErrEmptyFile
	}
	return DetectFormat(head[:n]), nil
}

// DetectDelimiter finds the delimiter of a delimited text export. Lines
// carrying header keywords are preferred; otherwise the line with the most
// separators wins.
func DetectDelimiter(data []byte) (rune, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return 0, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	var (
		keywordDelim, fallbackDelim rune
		keywordCount, fallbackCount int
	)
	for i, line := range lines {
		if i > 20 {
			break
		}
		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delim, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		lower := strings.ToLower(line)
		hasKeyword := false
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				hasKeyword = true
				break
			}
		}

		if hasKeyword && count > keywordCount {
			keywordDelim, keywordCount = delim, count
		} else if !hasKeyword && count > fallbackCount {
			fallbackDelim, fallbackCount = delim, count
		}
	}

	switch {
	case keywordCount > 0:
		return keywordDelim, nil
	case fallbackCount > 0:
		return fallbackDelim, nil
	default:
		return 0, ErrInvalidDelimiter
	}
}

// TrimBOM drops a leading UTF-8 byte order mark.
func TrimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

func looksLikeText(b []byte) bool {
	// a multi-byte rune may be cut at the sniff boundary
	for len(b) > 0 && !utf8.Valid(b) {
		b = b[:len(b)-1]
	}
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c == 0 {
			return false
		}
	}
	return true
}
