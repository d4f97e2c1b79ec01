// Package jq runs jq expressions over decoded API responses.
package jq

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/itchyny/gojq"
)

// DefaultCacheSize is the number of compiled programs kept by Default.
const DefaultCacheSize = 128

// Engine executes jq expressions. Compiled programs are kept in an LRU so
// repeated expressions skip parsing.
type Engine struct {
	programs *lru.Cache[string, *gojq.Code]
}

// NewEngine creates an engine caching up to cacheSize compiled programs.
func NewEngine(cacheSize int) (*Engine, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := lru.New[string, *gojq.Code](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Engine{programs: c}, nil
}

var defaultEngine = sync.OnceValue(func() *Engine {
	e, _ := NewEngine(DefaultCacheSize)
	return e
})

// Default returns a shared engine.
func Default() *Engine { return defaultEngine() }

// Result contains the results of a jq query.
type Result struct {
	Values   []any    `json:"values"`           // Extracted values
	Errors   []string `json:"errors,omitempty"` // Per-item errors (e.g., type mismatch)
	RawCount int      `json:"raw_count"`        // Count before deduplication
}

// Query executes expression against JSON data.
func (e *Engine) Query(data []byte, expression string, deduplicate bool, maxResults int) (*Result, error) {
	input, err := DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON data: %w", err)
	}
	return e.QueryValue(input, expression, deduplicate, maxResults)
}

// QueryValue executes expression against an already decoded value. The
// value must hold only types produced by DecodeJSON.
func (e *Engine) QueryValue(input any, expression string, deduplicate bool, maxResults int) (*Result, error) {
	code, err := e.compile(expression, nil)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Values: make([]any, 0),
	}
	seen := make(map[string]bool)
	iter := code.Run(input)

	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := v.(error); isErr {
			result.Errors = append(result.Errors, formatJQError("query", err))
			continue
		}

		// Skip nil values
		if v == nil {
			continue
		}

		result.RawCount++

		if deduplicate {
			key := valueKey(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		result.Values = append(result.Values, v)

		if maxResults > 0 && len(result.Values) >= maxResults {
			break
		}
	}

	return result, nil
}

// Extract runs a program with named variables and returns its outputs.
// Unlike Query, the first runtime error aborts and is returned. Variable
// names include the leading '$'.
func (e *Engine) Extract(input any, expression string, vars map[string]any) ([]any, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	// Stable order so the cache key and the argument order agree.
	slices.Sort(names)
	values := make([]any, len(names))
	for i, name := range names {
		values[i] = vars[name]
	}

	code, err := e.compile(expression, names)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := code.Run(input, values...)
	for {
		v, ok := iter.Next()
		if !ok {
			return out, nil
		}
		if err, isErr := v.(error); isErr {
			var haltErr *gojq.HaltError
			if errors.As(err, &haltErr) && haltErr.Value() == nil {
				return out, nil
			}
			return nil, errors.New(formatJQError("extract", err))
		}
		out = append(out, v)
	}
}

func (e *Engine) compile(expression string, vars []string) (*gojq.Code, error) {
	key := strings.Join(vars, ",") + "\x00" + expression
	if code, ok := e.programs.Get(key); ok {
		return code, nil
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	var opts []gojq.CompilerOption
	if len(vars) > 0 {
		opts = append(opts, gojq.WithVariables(vars))
	}
	code, err := gojq.Compile(query, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	e.programs.Add(key, code)
	return code, nil
}

// ValidateExpression checks if a jq expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return fmt.Errorf("invalid jq expression: %w", err)
	}

	_, err = gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq expression: %w", err)
	}

	return nil
}

// CachedPrograms returns the number of compiled programs in the cache.
func (e *Engine) CachedPrograms() int { return e.programs.Len() }

// DecodeJSON decodes data into the value types gojq accepts. Integers stay
// exact: they become int, or *big.Int beyond the int range.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after JSON value")
	}
	return normalize(v)
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil && int64(int(i)) == i {
			return int(i), nil
		}
		if bi, ok := new(big.Int).SetString(x.String(), 10); ok {
			return bi, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case []any:
		for i := range x {
			n, err := normalize(x[i])
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
	case map[string]any:
		for k := range x {
			n, err := normalize(x[k])
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
	}
	return v, nil
}

// formatJQError creates a helpful error message for jq execution errors.
//
// Runtime jq errors (like "cannot iterate over: null") are plain errors
// without typed wrappers in gojq, so string matching is used for the hints.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist in this response)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (field not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case int:
		return fmt.Sprintf("n:%d", val)
	case float64:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
