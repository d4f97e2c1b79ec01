package endpoints

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/query"
	"github.com/usestring/raceresult-go/pkg/rrtype"
)

// RawDataSchema returns the schema of the raw timing data table.
func RawDataSchema() query.Schema {
	return query.Schema{
		Table: "rawdata",
		Columns: []query.Column{
			col("ID", rrtype.Integer),
			col("PID", rrtype.Integer),
			col("Bib", rrtype.Integer),
			col("TimingPoint", rrtype.String),
			col("Result", rrtype.Integer),
			col("Time", rrtype.Decimal),
			col("Invalid", rrtype.Boolean),
			col("Passing.Transponder", rrtype.String),
			col("Passing.Hits", rrtype.Integer),
			col("Passing.RSSI", rrtype.Integer),
			col("Passing.IsMarker", rrtype.Boolean),
			col("DecoderID", rrtype.String),
			col("OrderID", rrtype.Integer),
			col("BatteryVoltage", rrtype.Decimal),
			col("Hits", rrtype.Integer),
			col("RSSI", rrtype.Integer),
		},
		CountCommand:    "rawdata/count",
		ListCommand:     "rawdata/export",
		DistinctCommand: "rawdata/distinctvalues",
		Paging:          query.PagingFirstMax,
		SortParam:       "sortBy",
	}
}

// RawFilter narrows raw data beyond the participant filter. It is sent as
// the JSON-encoded rdFilter parameter; zero fields are omitted.
type RawFilter struct {
	ID          []int       `json:"ID,omitempty"`
	MinID       int         `json:"MinID,omitempty"`
	MaxID       int         `json:"MaxID,omitempty"`
	TimingPoint []string    `json:"TimingPoint,omitempty"`
	MinTime     *rrtype.Dec `json:"MinTime,omitempty"`
	MaxTime     *rrtype.Dec `json:"MaxTime,omitempty"`
	Result      []int       `json:"Result,omitempty"`
	DeviceID    []string    `json:"DeviceID,omitempty"`
	Transponder []string    `json:"Transponder,omitempty"`
	OrderID     []int       `json:"OrderID,omitempty"`
	Hits        []int       `json:"Hits,omitempty"`
	RSSI        []int       `json:"RSSI,omitempty"`
	IsMarker    []bool      `json:"IsMarker,omitempty"`
}

// Params returns the rdFilter parameter, or nil for the zero filter.
func (f RawFilter) Params() (*client.Params, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, &client.BuildError{Param: "rdFilter", Reason: "cannot encode raw data filter", Err: err}
	}
	if string(b) == "{}" {
		return nil, nil
	}
	return client.NewParams("rdFilter", string(b)), nil
}

// RawData wraps the rawdata/* commands.
type RawData struct {
	ev     client.EventHandle
	engine *query.Engine
}

// NewRawData returns the raw data module for ev.
func NewRawData(ev client.EventHandle, opts ...query.Option) (*RawData, error) {
	e, err := query.New(ev, RawDataSchema(), opts...)
	if err != nil {
		return nil, err
	}
	return &RawData{ev: ev, engine: e}, nil
}

// Engine returns the query engine of the raw data table.
func (r *RawData) Engine() *query.Engine { return r.engine }

// Count returns the number of raw data entries matching sel.
func (r *RawData) Count(ctx context.Context, sel query.Selector) (int, error) {
	return r.engine.Count(ctx, sel)
}

// Export returns raw data rows. Paging uses firstRow/maxRows.
func (r *RawData) Export(ctx context.Context, spec query.Spec) (*query.ResultTable, error) {
	return r.engine.List(ctx, spec)
}

// DistinctValues returns the distinct values the event's raw data holds
// for column. The server reports DecoderID, OrderID, BatteryVoltage, Hits
// and RSSI; other columns yield no values.
func (r *RawData) DistinctValues(ctx context.Context, column string) ([]rrtype.Value, error) {
	return r.engine.DistinctValues(ctx, column)
}

// ManualPassing is a passing entered by hand.
type ManualPassing struct {
	TimingPoint string
	Participant client.Identifier
	Time        rrtype.Dec // seconds after midnight, or after T0 with AddT0
	AddT0       bool
}

// AddManual records a manual passing.
func (r *RawData) AddManual(ctx context.Context, m ManualPassing) error {
	if m.TimingPoint == "" || m.Participant.IsZero() {
		return &client.BuildError{Command: "rawdata/addmanual", Reason: "timing point and participant are required"}
	}
	params := client.NewParams("timingPoint", m.TimingPoint)
	m.Participant.Apply(params)
	params.Set("time", m.Time).Set("addT0", m.AddT0)
	if _, err := r.ev.Get(ctx, "rawdata/addmanual", params); err != nil {
		return fmt.Errorf("adding manual passing: %w", err)
	}
	return nil
}

// SetInvalid marks the raw data entry id invalid or valid again.
func (r *RawData) SetInvalid(ctx context.Context, id int, invalid bool) error {
	if _, err := r.ev.Get(ctx, "rawdata/setinvalid", client.NewParams("id", id, "invalid", invalid)); err != nil {
		return fmt.Errorf("setting raw data %d invalid=%t: %w", id, invalid, err)
	}
	return nil
}

// DeleteID deletes the raw data entry id.
func (r *RawData) DeleteID(ctx context.Context, id int) error {
	if _, err := r.ev.Get(ctx, "rawdata/deleteid", client.NewParams("id", id)); err != nil {
		return fmt.Errorf("deleting raw data %d: %w", id, err)
	}
	return nil
}
