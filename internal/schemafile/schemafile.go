// Package schemafile loads table schemas from YAML or JSON files so the CLI
// and the MCP server can query tables beyond the built-in ones.
//
//	tables:
//	  - table: results
//	    listCommand: data/list
//	    countCommand: data/count
//	    params: {listFormat: JSON}
//	    columns:
//	      - {name: Bib, type: integer}
//	      - {name: "[Finish.Decimal]", type: decimal}
package schemafile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// File is the document format of a schema file.
type File struct {
	Tables []Table `json:"tables" jsonschema:"required,minItems=1"`
}

// Table describes one table.
type Table struct {
	Table           string            `json:"table" jsonschema:"required,minLength=1"`
	ListCommand     string            `json:"listCommand" jsonschema:"required,minLength=1"`
	CountCommand    string            `json:"countCommand,omitempty"`
	DistinctCommand string            `json:"distinctCommand,omitempty"`
	DistinctPath    string            `json:"distinctPath,omitempty"`
	Paging          string            `json:"paging,omitempty" jsonschema:"enum=limitRange,enum=firstMax,enum=none"`
	FieldsParam     string            `json:"fieldsParam,omitempty"`
	SortParam       string            `json:"sortParam,omitempty"`
	GroupsParam     string            `json:"groupsParam,omitempty"`
	Params          map[string]string `json:"params,omitempty"`
	Columns         []Column          `json:"columns" jsonschema:"required,minItems=1"`
}

// Column describes one column. Type is a type name such as "decimal" or
// "list<integer>".
type Column struct {
	Name string `json:"name" jsonschema:"required,minLength=1"`
	Type string `json:"type" jsonschema:"required,pattern=^(string|integer|decimal|date|datetime|boolean|list<(string|integer|decimal|date|datetime|boolean)>)$"`
}

// ValidationError lists the problems found in a schema file.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid schema file %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// JSONSchema returns the JSON Schema of the file format.
func JSONSchema() *invopop.Schema {
	r := &invopop.Reflector{ExpandedStruct: true, DoNotReference: true}
	s := r.Reflect(&File{})
	s.Title = "raceresult table schemas"
	return s
}

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tables.json", doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	return c.Compile("tables.json")
})

// Load reads and validates the schema file at path. Files ending in .json
// are parsed as JSON, anything else as YAML.
func Load(path string) ([]query.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return Parse(path, data)
}

// Parse validates and converts a schema document. name is used in errors
// and to pick the format.
func Parse(name string, data []byte) ([]query.Schema, error) {
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ValidationError{Path: name, Problems: []string{err.Error()}}
		}
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return nil, &ValidationError{Path: name, Problems: []string{err.Error()}}
		}
	}

	if err := validate(name, data); err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &ValidationError{Path: name, Problems: []string{err.Error()}}
	}

	out := make([]query.Schema, 0, len(f.Tables))
	var problems []string
	for i, t := range f.Tables {
		s, err := t.schema()
		if err != nil {
			problems = append(problems, fmt.Sprintf("/tables/%d: %s", i, err))
			continue
		}
		out = append(out, s)
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Path: name, Problems: problems}
	}
	return out, nil
}

func (t Table) schema() (query.Schema, error) {
	paging, err := query.ParsePaging(t.Paging)
	if err != nil {
		return query.Schema{}, err
	}
	s := query.Schema{
		Table:           t.Table,
		CountCommand:    t.CountCommand,
		ListCommand:     t.ListCommand,
		DistinctCommand: t.DistinctCommand,
		DistinctPath:    t.DistinctPath,
		Paging:          paging,
		FieldsParam:     t.FieldsParam,
		SortParam:       t.SortParam,
		GroupsParam:     t.GroupsParam,
	}
	if len(t.Params) > 0 {
		keys := make([]string, 0, len(t.Params))
		for k := range t.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s.ListParams = client.NewParams()
		for _, k := range keys {
			s.ListParams.Set(k, t.Params[k])
		}
	}
	for _, c := range t.Columns {
		tag, err := rrtype.ParseTag(c.Type)
		if err != nil {
			return query.Schema{}, fmt.Errorf("column %q: %w", c.Name, err)
		}
		s.Columns = append(s.Columns, query.Column{Name: c.Name, Type: tag})
	}
	if err := s.Validate(); err != nil {
		return query.Schema{}, err
	}
	return s, nil
}

func validate(name string, data []byte) error {
	sch, err := compiled()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ValidationError{Path: name, Problems: []string{fmt.Sprintf("invalid JSON: %s", err)}}
	}
	if err := sch.Validate(inst); err != nil {
		return &ValidationError{Path: name, Problems: problems(err)}
	}
	return nil
}

var printer = message.NewPrinter(language.English)

// problems flattens a validation error into sorted, deduplicated leaf
// messages prefixed with their instance path.
func problems(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	seen := make(map[string]bool)
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e.ErrorKind != nil && len(e.Causes) == 0 {
			msg := e.ErrorKind.LocalizedString(printer)
			if len(e.InstanceLocation) > 0 {
				msg = "/" + strings.Join(e.InstanceLocation, "/") + ": " + msg
			}
			if !seen[msg] {
				seen[msg] = true
				out = append(out, msg)
			}
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
