package rrtype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	// Encoding layout; trailing zero fractions are dropped.
	dateTimeNanoLayout = "2006-01-02 15:04:05.999999999"
)

// oleEpoch is day zero of the compact numeric date form (OLE automation
// dates). Midnight of that day doubles as the "no value" sentinel.
var oleEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	dateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	dateLayout,
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
}

var dateLayouts = []string{
	dateLayout,
	"02.01.2006",
}

// isSentinel reports whether t is one of the "no value" dates: midnight of
// the OLE epoch or of year 1.
func isSentinel(t time.Time) bool {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	if h != 0 || mi != 0 || s != 0 || t.Nanosecond() != 0 {
		return false
	}
	return (y == 1899 && m == time.December && d == 30) || (y == 1 && m == time.January && d == 1)
}

// parseOLE decodes the compact numeric form: days since 1899-12-30, the
// fraction being the time of day. Resolution is one millisecond.
func parseOLE(s string) (time.Time, bool, error) {
	whole, frac, hasPoint := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if whole == "" || !allDigits(whole) || (hasPoint && (frac == "" || !allDigits(frac))) {
		return time.Time{}, false, nil
	}
	days, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, true, err
	}
	if math.Abs(days) > 3e6 {
		return time.Time{}, true, fmt.Errorf("serial date %s out of range", s)
	}
	ms := math.Round(days * 86400 * 1000)
	return oleEpoch.Add(time.Duration(ms) * time.Millisecond), true, nil
}

func decodeDateTime(s string) (Value, error) {
	if s == "" {
		return Null(), nil
	}
	t, numeric, err := parseOLE(s)
	if numeric {
		if err != nil {
			return Value{}, err
		}
	} else {
		t, err = parseLayouts(s, dateTimeLayouts)
		if err != nil {
			return Value{}, err
		}
	}
	if isSentinel(t) {
		return Null(), nil
	}
	return TimeValue(t), nil
}

func decodeDate(s string) (Value, error) {
	if s == "" {
		return Null(), nil
	}
	t, numeric, err := parseOLE(s)
	if numeric {
		if err != nil {
			return Value{}, err
		}
		if h, m, sec := t.Clock(); h != 0 || m != 0 || sec != 0 {
			return Value{}, fmt.Errorf("serial date %s carries a time of day", s)
		}
	} else {
		t, err = parseLayouts(s, dateLayouts)
		if err != nil {
			return Value{}, err
		}
	}
	if isSentinel(t) {
		return Null(), nil
	}
	return DateValue(t), nil
}

func parseLayouts(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}

func encodeTime(t time.Time, kind Kind) (string, error) {
	if y := t.Year(); y < 1 || y > 9999 {
		return "", &EncodeError{Kind: kind, Reason: fmt.Sprintf("year %d out of range", y)}
	}
	if isSentinel(t) {
		return "", &EncodeError{Kind: kind, Reason: "date collides with the no-value sentinel"}
	}
	if kind == KindDate {
		return t.Format(dateLayout), nil
	}
	if t.Location() != time.UTC {
		return t.Format(time.RFC3339Nano), nil
	}
	return t.Format(dateTimeNanoLayout), nil
}
