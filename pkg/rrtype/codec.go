package rrtype

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ListSeparator delimits list elements on the wire. A backslash escapes a
// separator or another backslash inside an element.
const ListSeparator = ','

// Decode converts wire text into a Value of the declared type.
func Decode(wire string, t Tag) (Value, error) {
	if !t.Valid() {
		return Value{}, newDecodeError(wire, t, errors.New("invalid declared type"))
	}
	v, err := decode(wire, t)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return Value{}, de
		}
		return Value{}, newDecodeError(wire, t, err)
	}
	return v, nil
}

func decode(wire string, t Tag) (Value, error) {
	switch t.Kind {
	case KindString:
		return StringValue(wire), nil
	case KindInteger:
		s := strings.TrimSpace(wire)
		if s == "" {
			return Null(), nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			var ne *strconv.NumError
			if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
				return Value{}, errors.New("integer out of range")
			}
			return Value{}, errors.New("not an integer")
		}
		return IntValue(i), nil
	case KindDecimal:
		s := strings.TrimSpace(wire)
		if s == "" {
			return Null(), nil
		}
		norm, err := normalizeDecimal(s)
		if err != nil {
			return Value{}, err
		}
		d, err := ParseDec(norm)
		if err != nil {
			return Value{}, err
		}
		return DecValue(d), nil
	case KindDate:
		return decodeDate(strings.TrimSpace(wire))
	case KindDateTime:
		return decodeDateTime(strings.TrimSpace(wire))
	case KindBoolean:
		switch strings.ToLower(strings.TrimSpace(wire)) {
		case "":
			return Null(), nil
		case "1", "-1", "true":
			return BoolValue(true), nil
		case "0", "false":
			return BoolValue(false), nil
		}
		return Value{}, errors.New("not a boolean")
	case KindList:
		return decodeList(wire, Tag{Kind: t.Elem})
	}
	return Value{}, fmt.Errorf("unsupported type %s", t)
}

func decodeList(wire string, elem Tag) (Value, error) {
	tokens, err := splitList(wire)
	if err != nil {
		return Value{}, err
	}
	items := make([]Value, 0, len(tokens))
	for i, tok := range tokens {
		v, err := decode(tok, elem)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		if v.IsNull() {
			return Value{}, fmt.Errorf("element %d is empty", i)
		}
		items = append(items, v)
	}
	return ListValue(items...), nil
}

func splitList(wire string) ([]string, error) {
	if wire == "" {
		return nil, nil
	}
	var (
		tokens []string
		cur    strings.Builder
	)
	for i := 0; i < len(wire); i++ {
		c := wire[i]
		switch {
		case c == '\\':
			if i+1 >= len(wire) {
				return nil, errors.New("dangling escape")
			}
			next := wire[i+1]
			if next != '\\' && next != ListSeparator {
				return nil, fmt.Errorf("invalid escape \\%c", next)
			}
			cur.WriteByte(next)
			i++
		case c == ListSeparator:
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(tokens, cur.String()), nil
}

func escapeListItem(s string) string {
	if strings.IndexByte(s, '\\') < 0 && strings.IndexByte(s, ListSeparator) < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' || s[i] == ListSeparator {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// DecodeJSON decodes a JSON cell. Strings go through the wire grammar of
// the declared type. Numbers and booleans are accepted where the type has a
// matching literal form, and as literal text for String columns. Objects,
// and arrays outside list columns, are rejected.
func DecodeJSON(raw json.RawMessage, t Tag) (Value, error) {
	raw = bytes.TrimSpace(raw)
	wire := string(raw)
	if !t.Valid() {
		return Value{}, newDecodeError(wire, t, errors.New("invalid declared type"))
	}
	if len(raw) == 0 || wire == "null" {
		return Null(), nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, newDecodeError(wire, t, err)
		}
		return Decode(s, t)
	case '[':
		if t.Kind != KindList {
			return Value{}, newDecodeError(wire, t, errors.New("unexpected array"))
		}
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return Value{}, newDecodeError(wire, t, err)
		}
		items := make([]Value, 0, len(elems))
		for i, e := range elems {
			v, err := DecodeJSON(e, Tag{Kind: t.Elem})
			if err != nil {
				return Value{}, newDecodeError(wire, t, fmt.Errorf("element %d: %w", i, err))
			}
			if v.IsNull() {
				return Value{}, newDecodeError(wire, t, fmt.Errorf("element %d is null", i))
			}
			items = append(items, v)
		}
		return ListValue(items...), nil
	case '{':
		return Value{}, newDecodeError(wire, t, errors.New("unexpected object"))
	case 't', 'f':
		switch t.Kind {
		case KindBoolean, KindString:
			return Decode(wire, t)
		}
		return Value{}, newDecodeError(wire, t, errors.New("unexpected boolean"))
	default:
		switch t.Kind {
		case KindString, KindInteger, KindDecimal, KindDate, KindDateTime, KindBoolean:
			return Decode(wire, t)
		}
		return Value{}, newDecodeError(wire, t, errors.New("unexpected number"))
	}
}

// Encode returns the wire text for v, as used in filter expressions and
// write payloads. Null encodes as the empty string.
func Encode(v Value) (string, error) {
	switch v.kind {
	case KindNull:
		return "", nil
	case KindString:
		return v.str, nil
	case KindInteger:
		return strconv.FormatInt(v.num, 10), nil
	case KindDecimal:
		return Dec(v.num).String(), nil
	case KindDate, KindDateTime:
		return encodeTime(v.t, v.kind)
	case KindBoolean:
		if v.b {
			return "1", nil
		}
		return "0", nil
	case KindList:
		if len(v.list) == 1 && v.list[0].kind == KindString && v.list[0].str == "" {
			return "", &EncodeError{Kind: KindList, Reason: "a single empty element is indistinguishable from the empty list"}
		}
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			switch item.kind {
			case KindNull:
				return "", &EncodeError{Kind: KindList, Reason: fmt.Sprintf("element %d is null", i)}
			case KindList:
				return "", &EncodeError{Kind: KindList, Reason: fmt.Sprintf("element %d is a nested list", i)}
			}
			s, err := Encode(item)
			if err != nil {
				return "", err
			}
			parts[i] = escapeListItem(s)
		}
		return strings.Join(parts, string(ListSeparator)), nil
	}
	return "", &EncodeError{Kind: v.kind, Reason: "unknown kind"}
}

// FormatParam stringifies a request parameter. Booleans render as
// true/false, slices are comma-joined, times use RFC3339 and Values use
// their wire encoding.
func FormatParam(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case Dec:
		return x.String(), nil
	case Value:
		return Encode(x)
	case time.Time:
		return x.Format(time.RFC3339), nil
	case []string:
		return strings.Join(x, ","), nil
	case []int:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.Itoa(n)
		}
		return strings.Join(parts, ","), nil
	case []int64:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, ","), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", &EncodeError{Kind: KindNull, Reason: fmt.Sprintf("cannot format parameter of type %T", v)}
}
