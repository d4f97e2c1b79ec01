package rrtype

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecimalPlaces is the number of fractional digits a Dec carries.
const DecimalPlaces = 4

const decimalFactor = 10000

// Dec is the service's fixed-point decimal: the value multiplied by 10^4
// and stored in an int64. Times (seconds), fees and other fractional
// numbers use it.
type Dec int64

// Bounds of the fixed representation.
const (
	MaxDec Dec = math.MaxInt64
	MinDec Dec = math.MinInt64
)

var errDecOverflow = errors.New("value exceeds fixed decimal range")

// DecFromInt returns the Dec for a whole number.
func DecFromInt(i int64) (Dec, error) {
	if i > int64(MaxDec)/decimalFactor || i < int64(MinDec)/decimalFactor {
		return 0, &EncodeError{Kind: KindDecimal, Reason: fmt.Sprintf("%d: %v", i, errDecOverflow)}
	}
	return Dec(i * decimalFactor), nil
}

// DecFromFloat rounds f to four fractional digits.
func DecFromFloat(f float64) (Dec, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &EncodeError{Kind: KindDecimal, Reason: fmt.Sprintf("%v is not a finite number", f)}
	}
	scaled := math.Round(f * decimalFactor)
	// float64(MaxInt64) rounds up to 2^63, so compare with >=.
	if scaled >= math.MaxInt64 || scaled < math.MinInt64 {
		return 0, &EncodeError{Kind: KindDecimal, Reason: fmt.Sprintf("%v: %v", f, errDecOverflow)}
	}
	return Dec(int64(scaled)), nil
}

// ParseDec parses a canonical decimal: optional sign, digits and an optional
// '.' followed by at most four digits.
func ParseDec(s string) (Dec, error) {
	if s == "" {
		return 0, errors.New("empty decimal")
	}
	sign := ""
	body := s
	if body[0] == '-' || body[0] == '+' {
		if body[0] == '-' {
			sign = "-"
		}
		body = body[1:]
	}

	intPart, frac, hasPoint := strings.Cut(body, ".")
	if hasPoint && frac == "" {
		return 0, fmt.Errorf("missing digits after decimal point in %q", s)
	}
	if intPart == "" && frac == "" {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	if !allDigits(intPart) || !allDigits(frac) {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	if len(frac) > DecimalPlaces {
		return 0, fmt.Errorf("%q has more than %d fractional digits", s, DecimalPlaces)
	}

	digits := intPart + frac + strings.Repeat("0", DecimalPlaces-len(frac))
	n, err := strconv.ParseInt(sign+digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%q: %w", s, errDecOverflow)
		}
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	return Dec(n), nil
}

// normalizeDecimal rewrites locale variants ("12,5", "1.234,5", "1,234.5")
// into the canonical '.'-separated form. It refuses input where the decimal
// separator cannot be determined.
func normalizeDecimal(s string) (string, error) {
	s = strings.TrimSpace(s)
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots == 0 && commas == 0:
		return s, nil
	case dots > 0 && commas > 0:
		last := strings.LastIndexAny(s, ".,")
		decSep := s[last]
		groupSep := byte(',')
		if decSep == ',' {
			groupSep = '.'
		}
		if strings.Count(s, string(decSep)) != 1 {
			return "", fmt.Errorf("ambiguous separators in %q", s)
		}
		intPart := s[:last]
		if strings.IndexByte(s[last+1:], groupSep) >= 0 {
			return "", fmt.Errorf("group separator after decimal point in %q", s)
		}
		if !validGrouping(strings.TrimLeft(intPart, "+-"), groupSep) {
			return "", fmt.Errorf("invalid digit grouping in %q", s)
		}
		return strings.ReplaceAll(intPart, string(groupSep), "") + "." + s[last+1:], nil
	case commas == 1:
		return strings.Replace(s, ",", ".", 1), nil
	case dots == 1:
		return s, nil
	default:
		return "", fmt.Errorf("ambiguous separators in %q", s)
	}
}

// validGrouping checks "1.234.567" style integer parts: a leading group of
// one to three digits followed by groups of exactly three.
func validGrouping(intPart string, sep byte) bool {
	groups := strings.Split(intPart, string(sep))
	if len(groups) < 2 {
		return false
	}
	if l := len(groups[0]); l < 1 || l > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String returns the canonical text form with trailing zeros removed.
func (d Dec) String() string {
	neg := d < 0
	u := uint64(d)
	if neg {
		u = -u
	}
	whole := u / decimalFactor
	frac := u % decimalFactor

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatUint(whole, 10))
	if frac != 0 {
		fs := fmt.Sprintf("%04d", frac)
		b.WriteByte('.')
		b.WriteString(strings.TrimRight(fs, "0"))
	}
	return b.String()
}

// Float64 returns the nearest float64.
func (d Dec) Float64() float64 {
	return float64(d) / decimalFactor
}

// Truncate returns the whole-number part.
func (d Dec) Truncate() int64 {
	return int64(d) / decimalFactor
}

// Seconds interprets d as a duration in seconds, the unit timing values use.
func (d Dec) Seconds() float64 {
	return d.Float64()
}

// MarshalJSON writes d as a JSON number without float rounding.
func (d Dec) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts JSON numbers and strings in any supported wire form.
func (d *Dec) UnmarshalJSON(data []byte) error {
	v, err := DecodeJSON(data, Decimal)
	if err != nil {
		return err
	}
	dec, _ := v.AsDec()
	*d = dec
	return nil
}
