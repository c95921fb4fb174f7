package common

import "time"

// RawRollup is the rollup token selecting the point-level query path
const RawRollup = "raw"

// DataPoint is a single observation (raw mode) or an aggregated bucket (rollup mode).
// A nil value means there was no observation for that instant/bucket.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value,omitempty"`
	Avg       *float64  `json:"avg,omitempty"`
	Min       *float64  `json:"min,omitempty"`
	Max       *float64  `json:"max,omitempty"`
	Sum       *float64  `json:"sum,omitempty"`
	Count     *int64    `json:"count,omitempty"`
}

// Displayed returns the value that is drawn for the provided rollup: value for raw, avg otherwise
func (dp DataPoint) Displayed(rollup string) *float64 {
	if IsRaw(rollup) {
		return dp.Value
	}

	return dp.Avg
}

// SeriesResult is the parsed response of a single series query
type SeriesResult struct {
	MetricName string      `json:"metricName"`
	Rollup     string      `json:"rollup"`
	Start      time.Time   `json:"start"`
	End        time.Time   `json:"end"`
	Points     []DataPoint `json:"points"`
}

// Catalog is the set of metrics that can be selected
type Catalog struct {
	Metrics      []string `json:"metrics"`
	TotalRecords int64    `json:"totalRecords"`
}

// Selection holds the current choices of the three selectors
type Selection struct {
	Metric string `json:"metric"`
	Rollup string `json:"rollup"`
	Range  string `json:"range"`
}

// RefreshRequested is the command produced by every selector change or refresh click
type RefreshRequested struct {
	Metric string `json:"metric"`
	Rollup string `json:"rollup"`
	Range  string `json:"range"`
}

// Selection returns the selection described by the command
func (cmd RefreshRequested) Selection() Selection {
	return Selection{
		Metric: cmd.Metric,
		Rollup: cmd.Rollup,
		Range:  cmd.Range,
	}
}

// RefreshRecord is one entry of the refresh history
type RefreshRecord struct {
	Token      uint64    `json:"token"`
	Metric     string    `json:"metric"`
	Rollup     string    `json:"rollup"`
	Range      string    `json:"range"`
	State      string    `json:"state"`
	Message    string    `json:"message"`
	NumPoints  int       `json:"numPoints"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

// IsRaw returns true if the rollup token selects the raw query path
func IsRaw(rollup string) bool {
	return rollup == RawRollup
}
