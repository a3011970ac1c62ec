package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNumber renders v with "." as thousands separator and "," before
// exactly two decimals: 1234.56 -> "1.234,56". NaN and infinities render
// as "0,00". Rounding is half away from zero on the shortest decimal form
// of v, so 1.005 renders as "1,01" rather than following its binary value
// down to "1,00".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0,00"
	}
	return formatDecimal(decimal.NewFromFloat(v))
}

// FormatOptionalNumber is FormatNumber for values that may be absent.
func FormatOptionalNumber(v *float64) string {
	if v == nil {
		return "0,00"
	}
	return FormatNumber(*v)
}

// FormatCurrency prefixes the formatted number with "$".
func FormatCurrency(v float64) string {
	return "$" + FormatNumber(v)
}

// FormatMoney is FormatCurrency for exact amounts.
func FormatMoney(m Money) string {
	return "$" + m.String()
}

// ParseFormattedNumber reverses FormatNumber: dots are dropped and the comma
// becomes the decimal point. Anything unparsable yields 0.
func ParseFormattedNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	clean := strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func formatDecimal(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + groupThousands(intPart) + "," + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
