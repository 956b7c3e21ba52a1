package order

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxInt = decimal.NewFromInt(math.MaxInt64)

// ParseDecimal parses a JSON scalar (number or numeric string) as a decimal.
func ParseDecimal(v any) (decimal.Decimal, error) {
	s, ok := Stringify(v)
	if !ok {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", s)
	}
	return d, nil
}

// ToFloat coerces v to float64. A nil value yields def silently; an
// unparseable one yields def and an error describing the value.
func ToFloat(v any, def float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	d, err := ParseDecimal(v)
	if err != nil {
		return def, err
	}
	return d.InexactFloat64(), nil
}

// ToInt coerces v to int64, truncating any fractional part toward zero.
func ToInt(v any, def int64) (int64, error) {
	if v == nil {
		return def, nil
	}
	d, err := ParseDecimal(v)
	if err != nil {
		return def, err
	}
	if d.Abs().GreaterThan(maxInt) {
		return def, fmt.Errorf("out of range: %s", d.String())
	}
	return d.IntPart(), nil
}
