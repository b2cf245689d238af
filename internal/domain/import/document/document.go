// Package document opens statement files (PDF, XLSX, CSV) and exposes them
// as pages of text and positional tables. Access recovers encrypted
// documents from a configured passphrase list.
package document

import (
	"errors"
	"strings"
)

var (
	// ErrPasswordRequired marks an open failure that a different passphrase may fix.
	ErrPasswordRequired = errors.New("document is password protected")
	// ErrUnsupportedFormat is returned for files that are not PDF, XLSX or CSV.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Table is an ordered sequence of rows; a nil cell is an empty cell.
type Table [][]*string

// NewTable converts string rows to a Table, mapping blank cells to nil.
func NewTable(rows [][]string) Table {
	t := make(Table, 0, len(rows))
	for _, row := range rows {
		r := make([]*string, len(row))
		for i, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			v := cell
			r[i] = &v
		}
		t = append(t, r)
	}
	return t
}

// Page is one page of a document. Number is 1-based.
type Page struct {
	Number int
	Text   string
	Tables []Table
}

// Document is an open, readable statement. Callers must Close it.
type Document interface {
	NumPages() int
	// Page loads page n, 1-based.
	Page(n int) (Page, error)
	Close() error
}

// Opener opens a document with a passphrase; "" means no passphrase.
// A wrong or missing passphrase must be reported as ErrPasswordRequired.
type Opener interface {
	Open(path, passphrase string) (Document, error)
}

// DecryptStatus is the outcome of an in-place decryption attempt.
type DecryptStatus int

const (
	DecryptFailed DecryptStatus = iota
	DecryptUserPassword
	DecryptOwnerPassword
)

// Matched reports whether the passphrase was accepted as user or owner password.
func (s DecryptStatus) Matched() bool {
	return s == DecryptUserPassword || s == DecryptOwnerPassword
}

func (s DecryptStatus) String() string {
	switch s {
	case DecryptUserPassword:
		return "user-password"
	case DecryptOwnerPassword:
		return "owner-password"
	default:
		return "failed"
	}
}

// Decrypter removes encryption from the file at path in place.
type Decrypter interface {
	Decrypt(path, passphrase string) (DecryptStatus, error)
}
