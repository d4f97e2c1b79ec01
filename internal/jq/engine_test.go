package jq

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(8)
	require.NoError(t, err)
	return e
}

func TestEngine_Query_Simple(t *testing.T) {
	engine := newEngine(t)

	data := []byte(`{"Lastname": "Doe", "Bib": 30}`)

	result, err := engine.Query(data, ".Lastname", false, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"Doe"}, result.Values)
	assert.Equal(t, 1, result.RawCount)
}

func TestEngine_Query_Deduplicate(t *testing.T) {
	engine := newEngine(t)

	data := []byte(`[[1, "Doe"], [2, "Doe"], [3, "Roe"]]`)

	result, err := engine.Query(data, ".[][1]", true, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"Doe", "Roe"}, result.Values)
	assert.Equal(t, 3, result.RawCount)
}

func TestEngine_Query_MaxResults(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.Query([]byte(`{"Hits": [1, 2, 3, 4, 5]}`), ".Hits[]", false, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, result.Values)
}

func TestEngine_Query_Select(t *testing.T) {
	engine := newEngine(t)

	data := []byte(`[{"Contest": 1, "Bib": 7}, {"Contest": 2, "Bib": 8}, {"Contest": 1, "Bib": 9}]`)

	result, err := engine.Query(data, `.[] | select(.Contest == 1) | .Bib`, false, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{7, 9}, result.Values)
}

func TestEngine_Query_InvalidExpression(t *testing.T) {
	engine := newEngine(t)

	_, err := engine.Query([]byte(`{}`), ".name[", false, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jq expression")
}

func TestEngine_Query_InvalidJSON(t *testing.T) {
	engine := newEngine(t)

	_, err := engine.Query([]byte(`{invalid json}`), ".name", false, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")

	_, err = engine.Query([]byte(`{} {}`), ".", false, 0)
	assert.Error(t, err)
}

func TestEngine_Query_NilValuesSkipped(t *testing.T) {
	engine := newEngine(t)

	data := []byte(`[{"Lastname": "a"}, {"Firstname": "b"}, {"Lastname": "c"}]`)

	result, err := engine.Query(data, ".[].Lastname", false, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c"}, result.Values)
	assert.Equal(t, 2, result.RawCount)
}

func TestEngine_Query_ReturnsErrors(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.Query([]byte(`{"DecoderID": null}`), ".DecoderID[]", false, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Values)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "the path may not exist")
}

func TestEngine_Query_BooleanAndNumbers(t *testing.T) {
	engine := newEngine(t)

	result, err := engine.Query([]byte(`[true, false, true, 42, 42, 3.14]`), ".[]", true, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{true, false, 42, 3.14}, result.Values)
}

func TestEngine_Extract_Variables(t *testing.T) {
	engine := newEngine(t)

	input, err := DecodeJSON([]byte(`{"DecoderID": ["D1", "D2"], "Hits": [3, 9]}`))
	require.NoError(t, err)

	got, err := engine.Extract(input, `.[$column][]?`, map[string]any{"$column": "Hits"})
	require.NoError(t, err)
	assert.Equal(t, []any{3, 9}, got)

	got, err = engine.Extract(input, `.[$column][]?`, map[string]any{"$column": "DecoderID"})
	require.NoError(t, err)
	assert.Equal(t, []any{"D1", "D2"}, got)
	assert.Equal(t, 1, engine.CachedPrograms(), "compiled once")

	_, err = engine.Extract(input, `.Hits[] | error("boom")`, nil)
	assert.ErrorContains(t, err, "boom")
}

func TestDecodeJSON_ExactIntegers(t *testing.T) {
	v, err := DecodeJSON([]byte(`[9007199254740993, 1e2, 12345678901234567890123]`))
	require.NoError(t, err)
	items := v.([]any)
	assert.Equal(t, 9007199254740993, items[0])
	assert.Equal(t, float64(100), items[1])
	want, _ := new(big.Int).SetString("12345678901234567890123", 10)
	assert.Equal(t, 0, want.Cmp(items[2].(*big.Int)))
}

func TestEngine_ValidateExpression(t *testing.T) {
	engine := newEngine(t)

	assert.NoError(t, engine.ValidateExpression(".Lastname"))
	assert.NoError(t, engine.ValidateExpression(`.[] | select(.Contest == 1)`))

	assert.Error(t, engine.ValidateExpression(".name["))
	assert.Error(t, engine.ValidateExpression("invalid("))
}

func TestEngine_ProgramCacheEvicts(t *testing.T) {
	engine, err := NewEngine(2)
	require.NoError(t, err)

	for _, expr := range []string{".a", ".b", ".c"} {
		_, err := engine.Query([]byte(`{}`), expr, false, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, engine.CachedPrograms())
	assert.NotNil(t, Default())
}
