package normalizer

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   civil.Date
		wantOK bool
	}{
		{"day first slash", "01/03/2024", civil.Date{Year: 2024, Month: time.March, Day: 1}, true},
		{"day first dash", "15-06-2024", civil.Date{Year: 2024, Month: time.June, Day: 15}, true},
		{"two digit year", "5/4/24", civil.Date{Year: 2024, Month: time.April, Day: 5}, true},
		{"year first", "2024-03-01", civil.Date{Year: 2024, Month: time.March, Day: 1}, true},
		{"year first slash", "2023/12/31", civil.Date{Year: 2023, Month: time.December, Day: 31}, true},
		{"embedded in text", "COMPRA 07/08/2024 LIDER", civil.Date{Year: 2024, Month: time.August, Day: 7}, true},
		{"month out of range", "01/13/2024", civil.Date{}, false},
		{"day out of range", "32/01/2024", civil.Date{}, false},
		{"not a calendar day", "30/02/2024", civil.Date{}, false},
		{"year before range", "01/01/1999", civil.Date{}, false},
		{"year after range", "01/01/2101", civil.Date{}, false},
		{"three digit year", "01/01/202", civil.Date{}, false},
		{"no date", "STARBUCKS", civil.Date{}, false},
		{"empty", "", civil.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindDate_Span(t *testing.T) {
	line := "15-06-2024 COMPRA FARMACIA AHUMADA $12.500"
	m, ok := FindDate(line)
	require.True(t, ok)
	assert.Equal(t, "15-06-2024", line[m.Start:m.End])
}

func TestStripDates(t *testing.T) {
	assert.Equal(t, "  COMPRA  ", StripDates("01/03/2024 COMPRA 2024-03-02"))
	assert.Equal(t, "SIN FECHA", StripDates("SIN FECHA"))
}
