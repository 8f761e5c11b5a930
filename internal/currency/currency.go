// Package currency renders monetary totals using a locale's separators and
// symbol. Grouping is computed from the digit count, so every magnitude and
// sign is handled the same way.
package currency

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

type Locale struct {
	Symbol    string
	Decimal   string
	Group     string
	GroupSize int
	Places    int32
}

// BRL is the Brazilian real: R$1.234.567,89.
var BRL = Locale{
	Symbol:    "R$",
	Decimal:   ",",
	Group:     ".",
	GroupSize: 3,
	Places:    2,
}

// FormatBRL formats v as Brazilian reais.
func FormatBRL(v float64) string {
	return BRL.Format(v)
}

func (l Locale) Format(v float64) string {
	switch {
	case math.IsNaN(v):
		return l.Symbol + "NaN"
	case math.IsInf(v, 1):
		return l.Symbol + "Inf"
	case math.IsInf(v, -1):
		return l.Symbol + "-Inf"
	}
	return l.FormatDecimal(decimal.NewFromFloat(v))
}

// FormatDecimal rounds half away from zero to l.Places and places the sign
// between the symbol and the digits. Values that round to zero carry no sign.
func (l Locale) FormatDecimal(d decimal.Decimal) string {
	rounded := d.Round(l.Places)
	digits := rounded.Abs().StringFixed(l.Places)
	intPart, fracPart, hasFrac := strings.Cut(digits, ".")

	var b strings.Builder
	b.Grow(len(l.Symbol) + len(digits) + len(digits)/3 + 1)
	b.WriteString(l.Symbol)
	if rounded.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(groupDigits(intPart, l.Group, l.GroupSize))
	if hasFrac {
		b.WriteString(l.Decimal)
		b.WriteString(fracPart)
	}
	return b.String()
}

// groupDigits inserts sep every size digits counting leftward from the end.
func groupDigits(digits, sep string, size int) string {
	if size <= 0 || len(digits) <= size {
		return digits
	}

	lead := len(digits) % size
	if lead == 0 {
		lead = size
	}

	var b strings.Builder
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += size {
		b.WriteString(sep)
		b.WriteString(digits[i : i+size])
	}
	return b.String()
}
