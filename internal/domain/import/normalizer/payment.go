package normalizer

import "strings"

// PaymentMethod is how a transaction was paid.
type PaymentMethod string

const (
	PaymentCredit PaymentMethod = "credit"
	PaymentDebit  PaymentMethod = "debit"
)

var (
	creditTokens = []string{"TARJETA", "CREDITO", "CREDIT", "VISA", "MASTERCARD"}
	debitTokens  = []string{"DEBITO", "DEBIT", "TRANSFERENCIA"}
)

// InferPaymentMethod classifies a description by keyword. Credit keywords win
// over debit ones, and text with neither defaults to credit.
func InferPaymentMethod(description string) PaymentMethod {
	desc := strings.ToUpper(Fold(description))
	switch {
	case ContainsAny(desc, creditTokens):
		return PaymentCredit
	case ContainsAny(desc, debitTokens):
		return PaymentDebit
	default:
		return PaymentCredit
	}
}
