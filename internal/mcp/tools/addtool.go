package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool after checking its output type with
// CheckOutputSchema.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	CheckOutputSchema[Out](t.Name)
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema panics if results of type T could fail the output schema
// the SDK infers from T. Two things go wrong in practice:
//
//   - nil slices marshal as null where the schema says "array"; tag them
//     omitzero.
//   - types with their own MarshalJSON (json.RawMessage, rrtype.Value,
//     rrtype.Dec) are inferred from their Go layout, not from the JSON they
//     write. Rows and cell values go out as any, decoded with jq.DecodeJSON.
//
// The untyped any output is not checked.
func CheckOutputSchema[T any](toolName string) {
	if err := checkOutput(reflect.TypeFor[T]()); err != nil {
		panic(fmt.Sprintf("AddTool %q: %v", toolName, err))
	}
}

func checkOutput(rt reflect.Type) error {
	if rt == reflect.TypeFor[any]() {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if paths := customJSONFields(rt, nil, make(map[reflect.Type]bool)); len(paths) > 0 {
		return fmt.Errorf("output type %s has custom JSON encodings at %s; use any (or []any) instead",
			rt, strings.Join(paths, ", "))
	}

	// Inference errors are reported by the SDK itself.
	schema, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return nil
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil
	}

	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if err := resolved.Validate(&v); err != nil {
		return fmt.Errorf("zero value of output type %s fails schema validation: %v (JSON %s); tag nil-defaulting slices omitzero",
			rt, err, data)
	}
	return nil
}

var marshalerType = reflect.TypeFor[json.Marshaler]()

// hasCustomJSON reports whether t writes JSON the schema generator cannot
// see. Dates go out as formatted strings.
func hasCustomJSON(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

// customJSONFields returns the paths of fields whose types have their own
// JSON encoding.
func customJSONFields(t reflect.Type, path []string, visited map[reflect.Type]bool) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if hasCustomJSON(t) {
		return []string{strings.Join(path, ".")}
	}
	if visited[t] {
		return nil
	}
	visited[t] = true
	defer delete(visited, t)

	var found []string
	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			found = append(found, customJSONFields(f.Type, append(path, f.Name), visited)...)
		}
	case reflect.Slice, reflect.Array:
		found = append(found, customJSONFields(t.Elem(), append(path, "[]"), visited)...)
	case reflect.Map:
		found = append(found, customJSONFields(t.Elem(), append(path, "[value]"), visited)...)
	}
	return found
}
