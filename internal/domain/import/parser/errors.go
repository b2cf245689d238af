package parser

import (
	"errors"
	"fmt"
)

// Kind classifies errors returned by ParseFile.
type Kind string

const (
	KindDocumentAccess      Kind = "document_access"
	KindNoTransactionsFound Kind = "no_transactions_found"
	KindMalformedDocument   Kind = "malformed_document"
)

var (
	ErrDocumentAccess      = errors.New("could not open document")
	ErrNoTransactionsFound = errors.New("no transactions found")
	ErrMalformedDocument   = errors.New("malformed document")
)

// Error is a parse failure for one document. It matches its kind's sentinel
// with errors.Is and unwraps to the underlying cause.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (k Kind) sentinel() error {
	switch k {
	case KindDocumentAccess:
		return ErrDocumentAccess
	case KindNoTransactionsFound:
		return ErrNoTransactionsFound
	default:
		return ErrMalformedDocument
	}
}

// KindOf returns the kind of a parse error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
