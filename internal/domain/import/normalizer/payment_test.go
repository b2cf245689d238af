package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferPaymentMethod(t *testing.T) {
	tests := []struct {
		desc string
		want PaymentMethod
	}{
		{"COMPRA TARJETA LIDER", PaymentCredit},
		{"pago visa starbucks", PaymentCredit},
		{"Compra crédito Falabella", PaymentCredit},
		{"TRANSFERENCIA A TERCEROS", PaymentDebit},
		{"Compra débito Jumbo", PaymentDebit},
		{"DEBIT CARD PURCHASE", PaymentDebit},
		{"TARJETA DE DEBITO", PaymentCredit},
		{"COMPRA FARMACIA AHUMADA", PaymentCredit},
		{"", PaymentCredit},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, InferPaymentMethod(tt.desc))
		})
	}
}
