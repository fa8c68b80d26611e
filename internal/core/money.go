package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a user-entered positive amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted and the value
// is rounded half-up to cents. Signs, thousands separators and zero are
// rejected with ErrInvalidAmount.
//
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("12,3")   -> 12.3
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := ParseNonNegativeAmount(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseNonNegativeAmount follows the ParseAmount format rules but accepts
// zero, for running totals such as a goal's current amount.
func ParseNonNegativeAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",")+strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// ParseOptionalAmount is ParseNonNegativeAmount for fields that may be blank.
func ParseOptionalAmount(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseNonNegativeAmount(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FormatCurrency renders d in rupees with Indian digit grouping, e.g.
// "Rs. 12,34,567.50". The PDF core fonts have no rupee sign.
func FormatCurrency(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	// The last three digits form one group; the rest group in pairs.
	grouped := intPart
	if len(intPart) > 3 {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		var b strings.Builder
		for i, r := range head {
			if i > 0 && (len(head)-i)%2 == 0 {
				b.WriteByte(',')
			}
			b.WriteRune(r)
		}
		grouped = b.String() + "," + tail
	}
	out := "Rs. " + grouped + frac
	if neg {
		return "-" + out
	}
	return out
}
