package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundingMode controls how amounts are brought down to a currency's
// precision. The default is Down (truncate toward zero).
type RoundingMode int

const (
	RoundDown RoundingMode = iota
	RoundUp
	RoundCeiling
	RoundFloor
	RoundHalfUp
	RoundHalfDown
	RoundHalfEven
)

func ParseRoundingMode(name string) RoundingMode {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "UP":
		return RoundUp
	case "CEILING":
		return RoundCeiling
	case "FLOOR":
		return RoundFloor
	case "HALF_UP":
		return RoundHalfUp
	case "HALF_DOWN":
		return RoundHalfDown
	case "HALF_EVEN":
		return RoundHalfEven
	default:
		return RoundDown
	}
}

func (m RoundingMode) String() string {
	switch m {
	case RoundUp:
		return "UP"
	case RoundCeiling:
		return "CEILING"
	case RoundFloor:
		return "FLOOR"
	case RoundHalfUp:
		return "HALF_UP"
	case RoundHalfDown:
		return "HALF_DOWN"
	case RoundHalfEven:
		return "HALF_EVEN"
	default:
		return "DOWN"
	}
}

// Scale produces a decimal with exactly precision fractional digits.
func Scale(v decimal.Decimal, precision int32, mode RoundingMode) decimal.Decimal {
	switch mode {
	case RoundUp:
		return v.RoundUp(precision)
	case RoundCeiling:
		return v.RoundCeil(precision)
	case RoundFloor:
		return v.RoundFloor(precision)
	case RoundHalfUp:
		return v.Round(precision)
	case RoundHalfDown:
		// shift half a quantum toward zero, then round away from zero, so
		// an exact midpoint lands on the value nearer zero
		half := decimal.New(5, -(precision + 1))
		if v.IsNegative() {
			return v.Add(half).RoundUp(precision)
		}
		return v.Sub(half).RoundUp(precision)
	case RoundHalfEven:
		return v.RoundBank(precision)
	default:
		return v.RoundDown(precision)
	}
}

// Format renders v with precision fractional digits and a comma as the
// thousands separator, e.g. 1234567.5 at precision 2 -> "1,234,567.50".
// Digits beyond precision are truncated toward zero.
func Format(v decimal.Decimal, precision int32) string {
	s := v.RoundDown(precision).StringFixed(precision)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	out := b.String()
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

func FormatWithSymbol(v decimal.Decimal, precision int32, symbol string) string {
	return symbol + Format(v, precision)
}

func IsPositive(v decimal.Decimal) bool {
	return v.IsPositive()
}

func IsNonNegative(v decimal.Decimal) bool {
	return !v.IsNegative()
}

// ParseAmount parses a user-supplied amount string.
func ParseAmount(text string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(text), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return v, nil
}
