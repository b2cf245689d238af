package document

import (
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/FACorreiaa/bankountable/internal/domain/import/sniffer"
)

var disableConfigDir sync.Once

// PDFDecrypter strips PDF encryption in place with pdfcpu. It covers
// encryption schemes the primary reader rejects, such as AES-256.
type PDFDecrypter struct{}

// NewPDFDecrypter keeps pdfcpu from reading or writing a user config directory.
func NewPDFDecrypter() PDFDecrypter {
	disableConfigDir.Do(api.DisableConfigDir)
	return PDFDecrypter{}
}

// Decrypt tries passphrase as the user password, then as the owner password.
// On a match the file at path is rewritten without encryption.
func (PDFDecrypter) Decrypt(path, passphrase string) (DecryptStatus, error) {
	format, err := sniffer.SniffFile(path)
	if err != nil {
		return DecryptFailed, fmt.Errorf("failed to sniff file: %w", err)
	}
	if format != sniffer.FormatPDF {
		return DecryptFailed, fmt.Errorf("%w: cannot decrypt %s in place", ErrUnsupportedFormat, format)
	}

	userErr := decryptInPlace(path, passphrase, "")
	if userErr == nil {
		return DecryptUserPassword, nil
	}
	ownerErr := decryptInPlace(path, "", passphrase)
	if ownerErr == nil {
		return DecryptOwnerPassword, nil
	}
	return DecryptFailed, fmt.Errorf("failed to decrypt pdf: %w", ownerErr)
}

func decryptInPlace(path, userPW, ownerPW string) error {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = userPW
	conf.OwnerPW = ownerPW
	// classic xref tables keep the output readable by the primary reader
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return api.DecryptFile(path, "", conf)
}
