package soc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
)

// LabelLayout formats telemetry timestamps on the time axis
const LabelLayout = "15:04:05"

// TimeSeries is the chart payload: index-aligned labels and SoC values
type TimeSeries struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// Len returns the number of points
func (ts TimeSeries) Len() int {
	return len(ts.Data)
}

// Validate checks the label and value sequences line up
func (ts TimeSeries) Validate() error {
	if len(ts.Labels) != len(ts.Data) {
		return fmt.Errorf("labels and data differ in length: %d != %d", len(ts.Labels), len(ts.Data))
	}
	return nil
}

// ParseTimeSeries decodes a {"labels": [...], "data": [...]} payload.
// Both fields must be present and of equal length, and no data point may be null.
func ParseTimeSeries(raw []byte) (TimeSeries, error) {
	var payload struct {
		Labels []string   `json:"labels"`
		Data   []*float64 `json:"data"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &payload); err != nil {
		return TimeSeries{}, fmt.Errorf("invalid chart data JSON: %w", err)
	}
	if payload.Labels == nil {
		return TimeSeries{}, fmt.Errorf("chart data is missing \"labels\"")
	}
	if payload.Data == nil {
		return TimeSeries{}, fmt.Errorf("chart data is missing \"data\"")
	}

	ts := TimeSeries{Labels: payload.Labels, Data: make([]float64, len(payload.Data))}
	for i, v := range payload.Data {
		if v == nil {
			return TimeSeries{}, fmt.Errorf("chart data point %d is null", i)
		}
		ts.Data[i] = *v
	}
	if err := ts.Validate(); err != nil {
		return TimeSeries{}, err
	}
	return ts, nil
}

// FromTelemetry builds the series of the given rows, which must already be in
// chronological order. Labels are UTC wall-clock times.
func FromTelemetry(rows []*contracts.Telemetry) TimeSeries {
	ts := TimeSeries{
		Labels: make([]string, 0, len(rows)),
		Data:   make([]float64, 0, len(rows)),
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		ts.Labels = append(ts.Labels, row.Timestamp.UTC().Format(LabelLayout))
		ts.Data = append(ts.Data, row.SoC)
	}
	return ts
}

// EmbedPayload returns the <script> element carrying ts inside an HTML page.
// encoding/json escapes <, > and &, so the payload cannot close the element early.
func EmbedPayload(ts TimeSeries) (template.HTML, error) {
	if ts.Labels == nil {
		ts.Labels = []string{}
	}
	if ts.Data == nil {
		ts.Data = []float64{}
	}

	data, err := json.Marshal(ts)
	if err != nil {
		return "", fmt.Errorf("encode chart data: %w", err)
	}

	return template.HTML(fmt.Sprintf(`<script id="%s" type="application/json">%s</script>`, ChartDataElementID, data)), nil
}
