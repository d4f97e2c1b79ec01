package rrtype

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cest := time.FixedZone("CEST", 2*60*60)

	tests := []struct {
		name string
		tag  Tag
		v    Value
	}{
		{"string", String, StringValue("Müller, Hans")},
		{"empty string", String, StringValue("")},
		{"integer zero", Integer, IntValue(0)},
		{"negative integer", Integer, IntValue(-42)},
		{"max integer", Integer, IntValue(math.MaxInt64)},
		{"min integer", Integer, IntValue(math.MinInt64)},
		{"decimal", Decimal, DecValue(125000)},
		{"decimal max digits", Decimal, DecValue(MaxDec)},
		{"decimal min digits", Decimal, DecValue(MinDec)},
		{"decimal fraction only", Decimal, DecValue(1)},
		{"date", Date, DateValue(time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC))},
		{"datetime", DateTime, TimeValue(time.Date(2024, 5, 17, 9, 30, 15, 0, time.UTC))},
		{"datetime millis", DateTime, TimeValue(time.Date(2024, 5, 17, 9, 30, 15, 123000000, time.UTC))},
		{"datetime with offset", DateTime, TimeValue(time.Date(2024, 5, 17, 9, 30, 0, 0, cest))},
		{"time of day on epoch", DateTime, TimeValue(time.Date(1899, 12, 30, 8, 0, 0, 0, time.UTC))},
		{"null datetime", DateTime, Null()},
		{"null decimal", Decimal, Null()},
		{"true", Boolean, BoolValue(true)},
		{"false", Boolean, BoolValue(false)},
		{"empty list", ListOf(KindInteger), ListValue()},
		{"integer list", ListOf(KindInteger), ListValue(IntValue(1), IntValue(-2), IntValue(3))},
		{"escaped list", ListOf(KindString), ListValue(StringValue("a,b"), StringValue(`c\d`), StringValue(""))},
		{"decimal list", ListOf(KindDecimal), ListValue(DecValue(5000), DecValue(MaxDec))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := Encode(tt.v)
			require.NoError(t, err)

			got, err := Decode(wire, tt.tag)
			require.NoError(t, err, "wire %q", wire)
			assert.True(t, tt.v.Equal(got), "want %v, got %v (wire %q)", tt.v.Interface(), got.Interface(), wire)
		})
	}
}

func TestDecode_Decimal(t *testing.T) {
	tests := []struct {
		wire string
		want Dec
	}{
		{"12.5", 125000},
		{"12,5", 125000},
		{"-0,25", -2500},
		{"1.234,56", 12345600},
		{"1,234.5", 12345000},
		{"1.234.567,8", 12345678000},
		{"  7 ", 70000},
		{"922337203685477.5807", MaxDec},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			v, err := Decode(tt.wire, Decimal)
			require.NoError(t, err)
			d, ok := v.AsDec()
			require.True(t, ok)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestDecode_DecimalErrors(t *testing.T) {
	for _, wire := range []string{
		"abc",
		"1.234.567", // grouping or decimal point, cannot tell
		"1,2,3",
		"12.34567", // more precision than the fixed representation
		"1.23,4",
		"12.",
		"922337203685477.5808",
	} {
		t.Run(wire, func(t *testing.T) {
			_, err := Decode(wire, Decimal)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, wire, de.Wire)
			assert.Equal(t, -1, de.Row)
		})
	}
}

func TestDecode_DateTimeSentinels(t *testing.T) {
	for _, wire := range []string{"", "0", "1899-12-30", "1899-12-30 00:00:00", "30.12.1899", "0001-01-01T00:00:00Z"} {
		t.Run(wire, func(t *testing.T) {
			v, err := Decode(wire, DateTime)
			require.NoError(t, err)
			assert.True(t, v.IsNull())
		})
	}

	v, err := Decode("1899-12-30 00:00:01", DateTime)
	require.NoError(t, err)
	assert.False(t, v.IsNull())
}

func TestDecode_DateTimeFormats(t *testing.T) {
	want := time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)
	for _, wire := range []string{
		"2024-05-17T12:00:00Z",
		"2024-05-17 12:00:00",
		"2024-05-17 12:00",
		"17.05.2024 12:00:00",
		"17.05.2024 12:00",
		"45429.5",
	} {
		t.Run(wire, func(t *testing.T) {
			v, err := Decode(wire, DateTime)
			require.NoError(t, err)
			got, ok := v.AsTime()
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, err := Decode("next tuesday", DateTime)
	var de *DecodeError
	assert.ErrorAs(t, err, &de)
}

func TestDecode_Date(t *testing.T) {
	want := DateValue(time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC))
	for _, wire := range []string{"2024-05-17", "17.05.2024", "45429"} {
		v, err := Decode(wire, Date)
		require.NoError(t, err, wire)
		assert.True(t, want.Equal(v), wire)
	}

	v, err := Decode("1899-12-30", Date)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = Decode("45429.5", Date)
	assert.Error(t, err)
}

func TestDecode_Scalars(t *testing.T) {
	v, err := Decode("-1", Boolean)
	require.NoError(t, err)
	b, _ := v.AsBool()
	assert.True(t, b)

	_, err = Decode("yes", Boolean)
	assert.Error(t, err)

	_, err = Decode("12.0", Integer)
	assert.Error(t, err)

	_, err = Decode("99999999999999999999", Integer)
	assert.ErrorContains(t, err, "out of range")

	v, err = Decode("", Integer)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestDecode_List(t *testing.T) {
	v, err := Decode("", ListOf(KindString))
	require.NoError(t, err)
	items, ok := v.AsList()
	require.True(t, ok)
	assert.Empty(t, items)

	_, err = Decode("1,,3", ListOf(KindInteger))
	assert.ErrorContains(t, err, "element 1")

	_, err = Decode(`a\`, ListOf(KindString))
	assert.ErrorContains(t, err, "dangling escape")
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		tag  Tag
		want Value
	}{
		{"number decimal", `12.5`, Decimal, DecValue(125000)},
		{"string decimal", `"12,5"`, Decimal, DecValue(125000)},
		{"null", `null`, Integer, Null()},
		{"number as string column", `12`, String, StringValue("12")},
		{"bool", `true`, Boolean, BoolValue(true)},
		{"numeric bool", `0`, Boolean, BoolValue(false)},
		{"array list", `[1, 2]`, ListOf(KindInteger), ListValue(IntValue(1), IntValue(2))},
		{"string list", `"1,2"`, ListOf(KindInteger), ListValue(IntValue(1), IntValue(2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON(json.RawMessage(tt.raw), tt.tag)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got.Interface())
		})
	}
}

func TestDecodeJSON_ShapeMismatch(t *testing.T) {
	for _, tc := range []struct {
		raw string
		tag Tag
	}{
		{`{"a": 1}`, String},
		{`[1]`, Integer},
		{`true`, Integer},
		{`[1, null]`, ListOf(KindInteger)},
		{`12.34567`, Decimal},
	} {
		_, err := DecodeJSON(json.RawMessage(tc.raw), tc.tag)
		var de *DecodeError
		assert.ErrorAs(t, err, &de, tc.raw)
	}
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"single empty element", ListValue(StringValue(""))},
		{"null element", ListValue(IntValue(1), Null())},
		{"nested list", ListValue(ListValue())},
		{"year out of range", TimeValue(time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC))},
		{"sentinel date", DateValue(time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.v)
			var ee *EncodeError
			assert.ErrorAs(t, err, &ee)
		})
	}
}

func TestDecFromFloat(t *testing.T) {
	d, err := DecFromFloat(12.34567)
	require.NoError(t, err)
	assert.Equal(t, "12.3457", d.String())

	_, err = DecFromFloat(1e20)
	var ee *EncodeError
	assert.ErrorAs(t, err, &ee)

	_, err = DecFromFloat(math.NaN())
	assert.ErrorAs(t, err, &ee)

	_, err = DecFromInt(math.MaxInt64 / 1000)
	assert.ErrorAs(t, err, &ee)
}

func TestDec_String(t *testing.T) {
	assert.Equal(t, "0", Dec(0).String())
	assert.Equal(t, "-0.0001", Dec(-1).String())
	assert.Equal(t, "3", Dec(30000).String())
	assert.Equal(t, "-922337203685477.5808", MinDec.String())
}

func TestDecodeError_InCell(t *testing.T) {
	_, err := Decode("x", Integer)
	var de *DecodeError
	require.True(t, errors.As(err, &de))

	located := de.InCell(5, 2, "Bib")
	assert.Equal(t, 5, located.Row)
	assert.Equal(t, 2, located.Column)
	assert.Contains(t, located.Error(), "row 5 column 2 (Bib)")
	assert.Equal(t, -1, de.Row, "original is not modified")
}

func TestParseTag(t *testing.T) {
	for _, tag := range []Tag{String, Integer, Decimal, Date, DateTime, Boolean, ListOf(KindDecimal)} {
		got, err := ParseTag(tag.String())
		require.NoError(t, err)
		assert.Equal(t, tag, got)
	}

	for _, bad := range []string{"", "null", "list", "list<list>", "float"} {
		_, err := ParseTag(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatParam(t *testing.T) {
	s, err := FormatParam([]string{"Bib", "Lastname"})
	require.NoError(t, err)
	assert.Equal(t, "Bib,Lastname", s)

	s, err = FormatParam(true)
	require.NoError(t, err)
	assert.Equal(t, "true", s)

	s, err = FormatParam(Dec(15000))
	require.NoError(t, err)
	assert.Equal(t, "1.5", s)

	_, err = FormatParam(struct{}{})
	assert.Error(t, err)
}
