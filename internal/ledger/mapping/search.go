package mapping

import (
	"strings"
	"unicode"
)

// NormalizeSearch lowercases text and strips everything that is not a letter
// or digit. Typed queries and decoded barcodes go through the same helper.
func NormalizeSearch(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CheckGTIN validates the GS1 check digit of an EAN-8, UPC-A, EAN-13 or
// GTIN-14 code. applicable is false for anything that is not such a code.
func CheckGTIN(code string) (applicable, valid bool) {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false, false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false, false
		}
	}

	// Weights alternate 3,1,3... from the digit left of the check digit
	sum := 0
	body := code[:len(code)-1]
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if (len(body)-1-i)%2 == 0 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return true, check == int(code[len(code)-1]-'0')
}
