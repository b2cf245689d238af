package normalizer

import (
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// Date-only patterns. The non-digit guards keep "2024-03-01" from being read
// as day 24, month 3, year 01.
var (
	dayFirstPattern  = regexp.MustCompile(`(?:^|\D)(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})(?:\D|$)`)
	yearFirstPattern = regexp.MustCompile(`(?:^|\D)(\d{4})[/-](\d{1,2})[/-](\d{1,2})(?:\D|$)`)

	// dateTokenPattern matches any date-looking substring for removal from descriptions.
	dateTokenPattern = regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
)

const (
	minYear = 2000
	maxYear = 2100
)

// DateMatch is a parsed date plus the byte span of its text in the input.
type DateMatch struct {
	Date  civil.Date
	Start int
	End   int
}

// FindDate returns the first valid date in s. Day-first forms are tried
// before year-first forms. Invalid calendar dates are skipped, never raised.
func FindDate(s string) (DateMatch, bool) {
	for _, re := range []*regexp.Regexp{dayFirstPattern, yearFirstPattern} {
		for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
			a, b, c := s[loc[2]:loc[3]], s[loc[4]:loc[5]], s[loc[6]:loc[7]]
			if d, ok := buildDate(a, b, c); ok {
				return DateMatch{Date: d, Start: loc[2], End: loc[7]}, true
			}
		}
	}
	return DateMatch{}, false
}

// ParseDate parses the first date found in s.
func ParseDate(s string) (civil.Date, bool) {
	m, ok := FindDate(s)
	if !ok {
		return civil.Date{}, false
	}
	return m.Date, true
}

// StripDates removes every date-looking substring from s.
func StripDates(s string) string {
	return dateTokenPattern.ReplaceAllString(s, " ")
}

// buildDate orders the three captured groups. A trailing four-digit group is
// a year (D/M/Y), a leading one is a year (Y/M/D); anything else is D/M/YY.
func buildDate(first, second, third string) (civil.Date, bool) {
	a, err1 := strconv.Atoi(first)
	b, err2 := strconv.Atoi(second)
	c, err3 := strconv.Atoi(third)
	if err1 != nil || err2 != nil || err3 != nil {
		return civil.Date{}, false
	}

	var day, month, year int
	switch {
	case len(third) == 4:
		day, month, year = a, b, c
	case len(first) == 4:
		year, month, day = a, b, c
	default:
		day, month, year = a, b, c
		if year < 100 {
			year += 2000
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || year < minYear || year > maxYear {
		return civil.Date{}, false
	}
	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}
