package document

import (
	"errors"
	"fmt"
	"log/slog"
)

// Mode records how a document was finally opened.
type Mode string

const (
	ModeNoPassphrase Mode = "none"
	ModePrimary      Mode = "primary"
	ModeSecondary    Mode = "secondary"
)

// AccessError means the document could not be opened under any strategy.
// Err is the last underlying cause.
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("could not open document %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Opened is a successfully opened document. PassphraseIndex is the position
// in the passphrase list that unlocked it, or -1.
type Opened struct {
	Document        Document
	Mode            Mode
	PassphraseIndex int
}

type accessState int

const (
	stateUnopened accessState = iota
	stateTryNoPassword
	stateTryPrimaryList
	stateTrySecondary
	stateOpened
	stateFailed
)

func (s accessState) String() string {
	switch s {
	case stateUnopened:
		return "unopened"
	case stateTryNoPassword:
		return "try-no-password"
	case stateTryPrimaryList:
		return "try-primary-list"
	case stateTrySecondary:
		return "try-secondary"
	case stateOpened:
		return "opened"
	default:
		return "failed"
	}
}

// Access opens documents, recovering encrypted ones from a passphrase list:
// no passphrase first, then each passphrase with the primary opener, then
// each passphrase through the in-place decrypter followed by a reopen.
type Access struct {
	opener      Opener
	decrypter   Decrypter
	passphrases []string
	logger      *slog.Logger
}

// NewAccess creates an Access. decrypter may be nil to disable the secondary strategy.
func NewAccess(opener Opener, decrypter Decrypter, passphrases []string, logger *slog.Logger) *Access {
	pw := make([]string, 0, len(passphrases))
	for _, p := range passphrases {
		if p != "" {
			pw = append(pw, p)
		}
	}
	return &Access{
		opener:      opener,
		decrypter:   decrypter,
		passphrases: pw,
		logger:      logger,
	}
}

// Open runs the recovery state machine for the document at path. Failures are
// *AccessError. A non-password failure from the opener aborts immediately.
// Passphrases are never logged, only their index.
func (a *Access) Open(path string) (*Opened, error) {
	var (
		state   = stateUnopened
		opened  = &Opened{PassphraseIndex: -1}
		lastErr = ErrPasswordRequired
	)

	for {
		switch state {
		case stateUnopened:
			state = stateTryNoPassword

		case stateTryNoPassword:
			doc, err := a.open(path, "")
			switch {
			case err == nil:
				opened.Document, opened.Mode = doc, ModeNoPassphrase
				state = stateOpened
			case errors.Is(err, ErrPasswordRequired):
				lastErr = err
				state = stateTryPrimaryList
			default:
				lastErr = err
				state = stateFailed
			}

		case stateTryPrimaryList:
			state = stateTrySecondary
			for i, pw := range a.passphrases {
				doc, err := a.open(path, pw)
				if err == nil {
					opened.Document, opened.Mode, opened.PassphraseIndex = doc, ModePrimary, i
					state = stateOpened
					break
				}
				lastErr = err
				if !errors.Is(err, ErrPasswordRequired) {
					state = stateFailed
					break
				}
				a.logger.Debug("passphrase rejected by primary strategy", slog.Int("passphrase_index", i))
			}

		case stateTrySecondary:
			state = stateFailed
			if a.decrypter == nil {
				break
			}
			for i, pw := range a.passphrases {
				status, err := a.decrypter.Decrypt(path, pw)
				if !status.Matched() {
					if err != nil {
						lastErr = err
					}
					a.logger.Debug("passphrase rejected by secondary strategy", slog.Int("passphrase_index", i))
					continue
				}

				a.logger.Info("document decrypted in place",
					slog.Int("passphrase_index", i),
					slog.String("status", status.String()),
				)
				doc, err := a.open(path, pw)
				if err != nil {
					lastErr = err
					continue
				}
				opened.Document, opened.Mode, opened.PassphraseIndex = doc, ModeSecondary, i
				state = stateOpened
				break
			}

		case stateOpened:
			a.logger.Info("document opened",
				slog.String("mode", string(opened.Mode)),
				slog.Int("passphrase_index", opened.PassphraseIndex),
			)
			return opened, nil

		case stateFailed:
			a.logger.Warn("document could not be opened", slog.Any("error", lastErr))
			return nil, &AccessError{Path: path, Err: lastErr}
		}
	}
}

// open never leaks a handle returned alongside an error.
func (a *Access) open(path, passphrase string) (Document, error) {
	doc, err := a.opener.Open(path, passphrase)
	if err != nil {
		if doc != nil {
			doc.Close()
		}
		return nil, err
	}
	return doc, nil
}
