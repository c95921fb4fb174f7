package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/tidwall/gjson"
)

const (
	metricsPath      = "metrics"
	metricNamePath   = "metric_name"
	totalRecordsPath = "total_records"
	totalPath        = "total"
	pointsPath       = "points"
	errorPath        = "error"
	detailPath       = "detail"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseCatalog validates and extracts the catalog listing payload
func parseCatalog(body []byte) (common.Catalog, error) {
	if !gjson.ValidBytes(body) {
		return common.Catalog{}, &MalformedResponseError{Reason: "catalog payload is not valid JSON"}
	}

	root := gjson.ParseBytes(body)
	err := checkUpstreamError(root)
	if err != nil {
		return common.Catalog{}, err
	}

	metrics := root.Get(metricsPath)
	if !metrics.IsArray() {
		return common.Catalog{}, &MalformedResponseError{Reason: "catalog payload lacks the metrics array"}
	}

	catalog := common.Catalog{
		Metrics: make([]string, 0, len(metrics.Array())),
	}
	for i, item := range metrics.Array() {
		name, errItem := metricNameFromItem(item)
		if errItem != nil {
			return common.Catalog{}, &MalformedResponseError{Reason: fmt.Sprintf("catalog item %d: %s", i, errItem.Error())}
		}

		catalog.Metrics = append(catalog.Metrics, name)
	}

	total := root.Get(totalRecordsPath)
	if !total.Exists() {
		total = root.Get(totalPath)
	}
	if total.Exists() && total.Type != gjson.Null {
		if total.Type != gjson.Number {
			return common.Catalog{}, &MalformedResponseError{Reason: "total_records is not a number"}
		}
		catalog.TotalRecords = total.Int()
	}

	return catalog, nil
}

func metricNameFromItem(item gjson.Result) (string, error) {
	var name string
	switch {
	case item.Type == gjson.String:
		name = item.String()
	case item.IsObject():
		field := item.Get(metricNamePath)
		if field.Type != gjson.String {
			return "", fmt.Errorf("missing %s", metricNamePath)
		}
		name = field.String()
	default:
		return "", fmt.Errorf("unexpected item type %s", item.Type.String())
	}

	name = strings.TrimSpace(name)
	if len(name) == 0 {
		return "", errors.New("empty metric name")
	}

	return name, nil
}

// parseSeries validates and extracts a raw or rollup series payload
func parseSeries(body []byte, metric string, rollup string) (*common.SeriesResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, &MalformedResponseError{Reason: "series payload is not valid JSON"}
	}

	root := gjson.ParseBytes(body)
	err := checkUpstreamError(root)
	if err != nil {
		return nil, err
	}

	points := root.Get(pointsPath)
	if !points.IsArray() {
		return nil, &MalformedResponseError{Reason: "series payload lacks the points array"}
	}

	result := &common.SeriesResult{
		MetricName: metric,
		Rollup:     rollup,
		Points:     make([]common.DataPoint, 0, len(points.Array())),
	}
	name := root.Get(metricNamePath)
	if name.Type == gjson.String && len(name.String()) > 0 {
		result.MetricName = name.String()
	}

	for i, item := range points.Array() {
		dp, errPoint := parsePoint(item, rollup)
		if errPoint != nil {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("point %d: %s", i, errPoint.Error())}
		}

		result.Points = append(result.Points, dp)
	}

	sort.SliceStable(result.Points, func(i, j int) bool {
		return result.Points[i].Timestamp.Before(result.Points[j].Timestamp)
	})

	return result, nil
}

func parsePoint(item gjson.Result, rollup string) (common.DataPoint, error) {
	if !item.IsObject() {
		return common.DataPoint{}, errors.New("not an object")
	}

	ts, err := parseTimestamp(item.Get("timestamp"))
	if err != nil {
		return common.DataPoint{}, err
	}

	dp := common.DataPoint{Timestamp: ts}
	if common.IsRaw(rollup) {
		dp.Value, err = optionalFloat(item, "value")
		return dp, err
	}

	dp.Avg, err = optionalFloat(item, "avg")
	if err != nil {
		return common.DataPoint{}, err
	}
	dp.Min, err = optionalFloat(item, "min")
	if err != nil {
		return common.DataPoint{}, err
	}
	dp.Max, err = optionalFloat(item, "max")
	if err != nil {
		return common.DataPoint{}, err
	}
	dp.Sum, err = optionalFloat(item, "sum")
	if err != nil {
		return common.DataPoint{}, err
	}

	count := item.Get("count")
	switch count.Type {
	case gjson.Null:
	case gjson.Number:
		c := count.Int()
		dp.Count = &c
	default:
		return common.DataPoint{}, errors.New("count is not a number")
	}

	return dp, nil
}

// optionalFloat returns nil for a missing or null field, never zero
func optionalFloat(item gjson.Result, field string) (*float64, error) {
	res := item.Get(field)
	switch res.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		v := res.Float()
		return &v, nil
	default:
		return nil, fmt.Errorf("%s is not a number", field)
	}
}

func parseTimestamp(res gjson.Result) (time.Time, error) {
	if res.Type != gjson.String {
		return time.Time{}, errors.New("missing timestamp")
	}

	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, res.String())
		if err == nil {
			return ts.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", res.String())
}

func checkUpstreamError(root gjson.Result) error {
	if !root.IsObject() {
		return &MalformedResponseError{Reason: "payload is not a JSON object"}
	}

	errField := root.Get(errorPath)
	if errField.Type == gjson.String && len(errField.String()) > 0 {
		return &UpstreamError{Message: errField.String()}
	}

	return nil
}

// extractErrorDetail returns the human readable detail of an error body, or an empty string
func extractErrorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}

	root := gjson.ParseBytes(body)
	detail := root.Get(detailPath)
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		messages := make([]string, 0, len(detail.Array()))
		for _, item := range detail.Array() {
			msg := item.Get("msg")
			if msg.Type == gjson.String {
				messages = append(messages, msg.String())
			}
		}
		return strings.Join(messages, "; ")
	}

	errField := root.Get(errorPath)
	if errField.Type == gjson.String {
		return errField.String()
	}

	return ""
}
