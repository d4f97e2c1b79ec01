package tools

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/raceresult-go/pkg/rrtype"
)

func TestCheckOutputSchema_nilSlice(t *testing.T) {
	type bad struct {
		Rows []string `json:"rows"`
	}
	assert.Panics(t, func() { CheckOutputSchema[bad]("bad") })

	type omitzero struct {
		Rows []string `json:"rows,omitzero"`
	}
	type omitempty struct {
		Rows []string `json:"rows,omitempty"`
	}
	type pointer struct {
		Rows *[]string `json:"rows"`
	}
	assert.NotPanics(t, func() {
		CheckOutputSchema[omitzero]("omitzero")
		CheckOutputSchema[omitempty]("omitempty")
		CheckOutputSchema[pointer]("pointer")
		CheckOutputSchema[any]("any")
	})
}

func TestCheckOutputSchema_customJSON(t *testing.T) {
	type inner struct {
		Cell rrtype.Value `json:"cell"`
	}
	tests := []struct {
		name string
		typ  reflect.Type
		path string
	}{
		{"time", reflect.TypeFor[struct {
			Expires time.Time `json:"expires"`
		}](), "Expires"},
		{"raw message", reflect.TypeFor[struct {
			Data json.RawMessage `json:"data,omitempty"`
		}](), "Data"},
		{"value slice", reflect.TypeFor[struct {
			Values []rrtype.Value `json:"values,omitzero"`
		}](), "Values.[]"},
		{"nested value", reflect.TypeFor[struct {
			Row inner `json:"row"`
		}](), "Row.Cell"},
		{"decimal map", reflect.TypeFor[struct {
			Totals map[string]rrtype.Dec `json:"totals,omitzero"`
		}](), "Totals.[value]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOutput(tt.typ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestCheckOutputSchema_allowed(t *testing.T) {
	type out struct {
		Name    string `json:"name"`
		Count   int    `json:"count"`
		Rows    []any  `json:"rows,omitzero"`
		Updated string `json:"updated,omitempty"`
	}
	assert.NoError(t, checkOutput(reflect.TypeFor[out]()))
	assert.NoError(t, checkOutput(reflect.TypeFor[*out]()))
}

func TestCheckOutputSchema_toolOutputs(t *testing.T) {
	assert.NotPanics(t, func() {
		CheckOutputSchema[CountOutput]("rr_count")
		CheckOutputSchema[ListOutput]("rr_list")
		CheckOutputSchema[DistinctOutput]("rr_distinct")
		CheckOutputSchema[TablesOutput]("rr_tables")
		CheckOutputSchema[EventsOutput]("rr_events")
		CheckOutputSchema[WhoAmIOutput]("rr_whoami")
	})
}
