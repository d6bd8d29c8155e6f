package table

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceNumeric converts a raw export cell to a float. Every character other
// than digits, '.' and '-' is stripped first; a blank result is 0 and so is
// anything that still fails to parse ("1.2.3", "--").
func CoerceNumeric(raw string) float64 {
	v, _ := ParseNumeric(raw)
	return v
}

// ParseNumeric is CoerceNumeric that also reports whether the cell held a
// usable number. Blank cells are valid zeros; anything else that coerces to
// 0 by failing to parse is not.
func ParseNumeric(raw string) (float64, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(NumericChars(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NumericChars keeps only digits, '.' and '-' from s.
func NumericChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if isNumericRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NonNumericChars keeps everything NumericChars drops.
func NonNumericChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !isNumericRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumericRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.' || r == '-'
}

// Round4 rounds x to four decimal places, half away from zero.
func Round4(x float64) float64 {
	return decimal.NewFromFloat(x).Round(4).InexactFloat64()
}

// FormatFloat renders a value the way output tables carry it: shortest
// representation that round-trips.
func FormatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
