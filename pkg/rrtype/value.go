package rrtype

import (
	"encoding/json"
	"time"
)

// Value is a decoded cell. The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  int64 // KindInteger, and KindDecimal as a scaled Dec
	t    time.Time
	b    bool
	list []Value
}

// Null returns the Null value.
func Null() Value { return Value{} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{kind: KindInteger, num: i} }

// DecValue wraps d.
func DecValue(d Dec) Value { return Value{kind: KindDecimal, num: int64(d)} }

// DateValue keeps the calendar date of t and drops the time of day.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TimeValue wraps a date and time of day.
func TimeValue(t time.Time) Value { return Value{kind: KindDateTime, t: t} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// ListValue wraps items. A nil or empty slice is the empty list, not Null.
func ListValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// Kind returns the value's kind; KindNull for Null.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v carries no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == KindInteger }

// AsDec returns the decimal payload.
func (v Value) AsDec() (Dec, bool) { return Dec(v.num), v.kind == KindDecimal }

// AsTime returns the payload of a Date or DateTime value.
func (v Value) AsTime() (time.Time, bool) {
	return v.t, v.kind == KindDate || v.kind == KindDateTime
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }

// AsList returns the list elements.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// Equal reports whether v and o hold the same semantic value. Times compare
// as instants, so the same moment in two locations is equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInteger, KindDecimal:
		return v.num == o.num
	case KindDate, KindDateTime:
		return v.t.Equal(o.t)
	case KindBoolean:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface returns v as a plain Go value: nil, string, int64, Dec,
// time.Time, bool or []any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.num
	case KindDecimal:
		return Dec(v.num)
	case KindDate, KindDateTime:
		return v.t
	case KindBoolean:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	}
	return nil
}

// String returns the wire text of v, or "" for values that cannot be encoded.
func (v Value) String() string {
	s, err := Encode(v)
	if err != nil {
		return ""
	}
	return s
}

// MarshalJSON renders v as a natural JSON value. Dates use YYYY-MM-DD and
// date-times RFC3339.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindDecimal:
		return Dec(v.num).MarshalJSON()
	case KindDate:
		return json.Marshal(v.t.Format(dateLayout))
	case KindDateTime:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	case KindList:
		return json.Marshal(v.list)
	}
	return json.Marshal(v.Interface())
}
