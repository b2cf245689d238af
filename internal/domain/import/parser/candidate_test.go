package parser

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/bankountable/internal/domain/import/normalizer"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestCandidateKey(t *testing.T) {
	long := strings.Repeat("a", 120)

	tests := []struct {
		name string
		a, b Candidate
		same bool
	}{
		{
			name: "case and surrounding space are ignored",
			a:    Candidate{Date: date(2024, 3, 1), Description: "  STARBUCKS Cafe"},
			b:    Candidate{Date: date(2024, 3, 1), Description: "starbucks cafe "},
			same: true,
		},
		{
			name: "only the first 100 characters count",
			a:    Candidate{Date: date(2024, 3, 1), Description: long + "x"},
			b:    Candidate{Date: date(2024, 3, 1), Description: long + "y"},
			same: true,
		},
		{
			name: "different dates",
			a:    Candidate{Date: date(2024, 3, 1), Description: "LIDER"},
			b:    Candidate{Date: date(2024, 3, 2), Description: "LIDER"},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.same, tt.a.Key() == tt.b.Key())
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	b := NewBuilder(nil)

	c := b.Build(date(2024, 6, 15), "  PAGO DEBITO COPEC 123 ", decimal.NewFromInt(-15000))

	assert.Equal(t, "PAGO DEBITO COPEC 123", c.Description)
	assert.Equal(t, "Copec", c.Merchant)
	assert.Equal(t, normalizer.PaymentDebit, c.PaymentMethod)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(15000)))

	c = b.Build(date(2024, 6, 15), strings.Repeat("ñ", 600), decimal.NewFromInt(2000))
	assert.Equal(t, 500, len([]rune(c.Description)))
}

func TestBuilderCustomMerchants(t *testing.T) {
	b := NewBuilder(normalizer.NewMerchantExtractor([]string{"Café Haiti"}))

	c := b.Build(date(2024, 1, 2), "COMPRA CAFE HAITI CENTRO", decimal.NewFromInt(3500))
	assert.Equal(t, "Cafe Haiti", c.Merchant)
}
