package core

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Formatter renders money in a fixed currency.
type Formatter struct {
	Symbol string
}

func NewFormatter(symbol string) Formatter {
	return Formatter{Symbol: symbol}
}

// Zero is the display string for a zero or missing amount.
func (f Formatter) Zero() string {
	return f.Symbol + "0"
}

// Currency formats amount rounded half to even to whole units with grouped
// thousands, e.g. "₹1,234,567".
func (f Formatter) Currency(amount decimal.Decimal) string {
	rounded := amount.RoundBank(0)
	if rounded.IsZero() {
		return f.Zero()
	}
	if rounded.IsNegative() {
		return "-" + f.Symbol + humanize.Comma(rounded.Neg().IntPart())
	}
	return f.Symbol + humanize.Comma(rounded.IntPart())
}

// CurrencyNull is Currency for values that may be SQL NULL.
func (f Formatter) CurrencyNull(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return f.Zero()
	}
	return f.Currency(amount.Decimal)
}

// FormatNumber abbreviates large magnitudes: 2300000 → "2.3M", 1500 → "1.5K", 999 → "999".
func FormatNumber(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	default:
		return fmt.Sprintf("%.0f", n)
	}
}

// FormatCount is FormatNumber for integer counts.
func FormatCount(n int64) string {
	return FormatNumber(float64(n))
}
