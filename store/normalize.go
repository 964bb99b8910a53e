package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalizer converts comparison-sensitive values into representations the
// store can order natively.
type Normalizer struct {
	UseTZ         bool
	MaxDigits     int
	DecimalPlaces int
}

// NewNormalizer returns the normalizer described by the config.
func NewNormalizer(cfg Config) Normalizer {
	cfg.validate()
	return Normalizer{
		UseTZ:         cfg.UseTZ,
		MaxDigits:     cfg.DecimalMaxDigits,
		DecimalPlaces: cfg.DecimalPlaces,
	}
}

// ForField returns a normalizer using the field's decimal precision when it declares one.
func (n Normalizer) ForField(f *Field) Normalizer {
	if f != nil && f.MaxDigits > 0 {
		n.MaxDigits = f.MaxDigits
		n.DecimalPlaces = f.DecimalPlaces
	}
	return n
}

// Normalize returns v in its stored form. Timestamps become naive UTC times
// and decimals become order-preserving strings; other values pass through.
func (n Normalizer) Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return MakeNaive(t, n.UseTZ)
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return MakeNaive(*t, n.UseTZ)
	case decimal.Decimal:
		return DecimalToString(t, n.MaxDigits, n.DecimalPlaces)
	case *decimal.Decimal:
		if t == nil {
			return nil, nil
		}
		return DecimalToString(*t, n.MaxDigits, n.DecimalPlaces)
	case decimal.NullDecimal:
		if !t.Valid {
			return nil, nil
		}
		return DecimalToString(t.Decimal, n.MaxDigits, n.DecimalPlaces)
	}
	return v, nil
}

// IsAware reports whether t carries a timezone. Times in the UTC location are naive.
func IsAware(t time.Time) bool {
	return t.Location() != time.UTC
}

// MakeNaive converts an aware timestamp to UTC. Aware timestamps are rejected
// unless useTZ is set.
func MakeNaive(t time.Time, useTZ bool) (time.Time, error) {
	if !IsAware(t) {
		return t, nil
	}
	if !useTZ {
		return time.Time{}, fmt.Errorf("%w: got %s", ErrUnsupportedConfiguration, t.Location())
	}
	return t.UTC(), nil
}

// DecimalToString encodes d as a fixed-width string whose lexicographic order
// matches numeric order for values of the same sign.
//
// The sign is handled separately from the zero-padded magnitude, so negative
// values sort by magnitude and never below positive ones.
func DecimalToString(d decimal.Decimal, maxDigits, decimalPlaces int) (string, error) {
	places := int32(decimalPlaces)
	d = d.RoundBank(places)

	sign := ""
	if d.Sign() < 0 {
		sign = "-"
		d = d.Abs()
	}
	value := d.StringFixed(places)

	width := maxDigits - decimalPlaces
	n := strings.IndexByte(value, '.')
	if n < 0 {
		n = len(value)
	}
	digits := n
	if value[:n] == "0" {
		digits = 0
	}
	if digits > width {
		return "", fmt.Errorf("%w: %s has more than %d integer digits", ErrDecimalOverflow, value, width)
	}
	if n < width {
		value = strings.Repeat("0", width-n) + value
	}
	return sign + value, nil
}
