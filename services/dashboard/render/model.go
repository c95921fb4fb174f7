package render

import (
	"fmt"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

const (
	chartLabelLayout = "Jan 2 15:04"
	tableTimeLayout  = "2006-01-02 15:04:05 MST"
	nullText         = "null"

	// EmptyPlaceholder is shown in the table when there is nothing to list
	EmptyPlaceholder = "No data available"
)

// ChartData is what the chart surface accepts: ordered labels, ordered values (nil is a gap) and a title
type ChartData struct {
	Title  string     `json:"title"`
	Labels []string   `json:"labels"`
	Values []*float64 `json:"values"`
}

// IsEmpty returns true if there is no point to draw
func (cd ChartData) IsEmpty() bool {
	return len(cd.Labels) == 0
}

// TableRow is one rendered row of the data table
type TableRow struct {
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

// Table is the rendered data table. Placeholder is set when there are no rows.
type Table struct {
	Rows        []TableRow `json:"rows"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// EmptyChart returns the cleared chart
func EmptyChart() ChartData {
	return ChartData{
		Labels: make([]string, 0),
		Values: make([]*float64, 0),
	}
}

// EmptyTable returns the cleared table showing the placeholder row
func EmptyTable() Table {
	return Table{
		Rows:        make([]TableRow, 0),
		Placeholder: EmptyPlaceholder,
	}
}

// BuildChart converts a series into chart data. Timestamps are shown in the provided location.
func BuildChart(series *common.SeriesResult, loc *time.Location) ChartData {
	if series == nil || len(series.Points) == 0 {
		return EmptyChart()
	}

	data := ChartData{
		Title:  fmt.Sprintf("%s (%s)", series.MetricName, series.Rollup),
		Labels: make([]string, 0, len(series.Points)),
		Values: make([]*float64, 0, len(series.Points)),
	}
	for _, dp := range series.Points {
		data.Labels = append(data.Labels, dp.Timestamp.In(location(loc)).Format(chartLabelLayout))
		data.Values = append(data.Values, copyValue(dp.Displayed(series.Rollup)))
	}

	return data
}

// BuildTable converts a series into table rows, one per point, in timestamp order
func BuildTable(series *common.SeriesResult, loc *time.Location) Table {
	if series == nil || len(series.Points) == 0 {
		return EmptyTable()
	}

	table := Table{
		Rows: make([]TableRow, 0, len(series.Points)),
	}
	for _, dp := range series.Points {
		table.Rows = append(table.Rows, TableRow{
			Timestamp: dp.Timestamp.In(location(loc)).Format(tableTimeLayout),
			Value:     FormatValue(dp.Displayed(series.Rollup)),
		})
	}

	return table
}

// FormatValue renders a value with two decimals, or the literal null marker
func FormatValue(value *float64) string {
	if value == nil {
		return nullText
	}

	return fmt.Sprintf("%.2f", *value)
}

func copyValue(value *float64) *float64 {
	if value == nil {
		return nil
	}

	v := *value
	return &v
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}

	return loc
}
