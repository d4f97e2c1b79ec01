// Package rrtype converts between the RACE RESULT wire encodings and typed Go values.
//
// Every cell the service returns is text (or a JSON scalar) whose meaning
// depends on the column's declared type. A Tag names that type, Decode turns
// wire text into a Value, and Encode produces the text used in filter
// expressions and write payloads:
//
//	v, err := rrtype.Decode("12,5", rrtype.Decimal)
//	s, err := rrtype.Encode(v) // "12.5"
//
// Decoding is strict: text that does not match the declared type's grammar
// yields a *DecodeError rather than a guessed value.
package rrtype

import "fmt"

// Kind enumerates the primitive value kinds known to the codec.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindDecimal
	KindDate
	KindDateTime
	KindBoolean
	KindList
)

var kindNames = [...]string{
	KindNull:     "null",
	KindString:   "string",
	KindInteger:  "integer",
	KindDecimal:  "decimal",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindBoolean:  "boolean",
	KindList:     "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind returns the Kind for a name produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return KindNull, false
}

// Tag is the declared type of a column. Elem is only meaningful for lists.
type Tag struct {
	Kind Kind
	Elem Kind
}

// Declared column types.
var (
	String   = Tag{Kind: KindString}
	Integer  = Tag{Kind: KindInteger}
	Decimal  = Tag{Kind: KindDecimal}
	Date     = Tag{Kind: KindDate}
	DateTime = Tag{Kind: KindDateTime}
	Boolean  = Tag{Kind: KindBoolean}
)

// ListOf returns the tag of a list whose elements have the given primitive kind.
func ListOf(elem Kind) Tag {
	return Tag{Kind: KindList, Elem: elem}
}

// Valid reports whether the tag can be used to decode a column.
func (t Tag) Valid() bool {
	switch t.Kind {
	case KindString, KindInteger, KindDecimal, KindDate, KindDateTime, KindBoolean:
		return true
	case KindList:
		return t.Elem >= KindString && t.Elem <= KindBoolean
	}
	return false
}

func (t Tag) String() string {
	if t.Kind == KindList {
		return "list<" + t.Elem.String() + ">"
	}
	return t.Kind.String()
}

// ParseTag parses the textual form produced by Tag.String, e.g. "decimal"
// or "list<integer>".
func ParseTag(s string) (Tag, error) {
	if len(s) > 6 && s[:5] == "list<" && s[len(s)-1] == '>' {
		elem, ok := ParseKind(s[5 : len(s)-1])
		if !ok {
			return Tag{}, fmt.Errorf("unknown list element type %q", s[5:len(s)-1])
		}
		t := ListOf(elem)
		if !t.Valid() {
			return Tag{}, fmt.Errorf("invalid list element type %q", elem)
		}
		return t, nil
	}
	k, ok := ParseKind(s)
	if !ok || k == KindNull || k == KindList {
		return Tag{}, fmt.Errorf("unknown type %q", s)
	}
	return Tag{Kind: k}, nil
}
