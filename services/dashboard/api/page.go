package api

import "html/template"

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageData struct {
	Metrics        []option
	Rollups        []option
	Ranges         []option
	StatusMessage  string
	StatusClass    string
	StatusVisible  bool
	AutoHideMillis int64
	ChartTitle     string
	HasChart       bool
	ChartSVG       template.HTML
	Token          uint64
	Rows           []tableRowView
	Placeholder    string
}

type tableRowView struct {
	Timestamp string
	Value     string
}

func buildOptions(values []string, selected string, label func(string) string) []option {
	options := make([]option, 0, len(values))
	for _, value := range values {
		options = append(options, option{
			Value:    value,
			Label:    label(value),
			Selected: value == selected,
		})
	}

	return options
}

func identity(value string) string {
	return value
}

func rollupLabel(value string) string {
	if value == "raw" {
		return "Raw"
	}

	return value + " rollup"
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Metrics dashboard</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 24px; color: #222; }
form { display: flex; gap: 12px; align-items: center; margin-bottom: 16px; }
.status { padding: 8px 12px; border-radius: 4px; margin-bottom: 16px; }
.status.loading { background: #e7f1ff; color: #0b5ed7; }
.status.success { background: #e6f4ea; color: #1e7e34; }
.status.error { background: #fdecea; color: #b02a37; }
.status.empty { background: #f1f3f5; color: #495057; }
.hidden { display: none; }
table { border-collapse: collapse; min-width: 420px; }
th, td { border-bottom: 1px solid #dee2e6; padding: 4px 12px; text-align: left; }
td.placeholder { color: #868e96; font-style: italic; }
</style>
</head>
<body>
<h1>Metrics dashboard</h1>
<form method="get" action="/">
  <label>Metric
    <select name="metric">
      {{range .Metrics}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
    </select>
  </label>
  <label>Aggregation
    <select name="rollup">
      {{range .Rollups}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
    </select>
  </label>
  <label>Range
    <select name="range">
      {{range .Ranges}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>{{end}}
    </select>
  </label>
  <button type="submit">Refresh</button>
</form>
<div id="status" class="status {{.StatusClass}}{{if not .StatusVisible}} hidden{{end}}" data-autohide-ms="{{.AutoHideMillis}}">{{.StatusMessage}}</div>
{{if .HasChart}}<h2>{{.ChartTitle}}</h2>
<figure id="chart" data-token="{{.Token}}">{{.ChartSVG}}</figure>{{end}}
<table id="data">
  <thead><tr><th>Timestamp</th><th>Value</th></tr></thead>
  <tbody>
  {{range .Rows}}<tr><td>{{.Timestamp}}</td><td>{{.Value}}</td></tr>
  {{else}}<tr><td class="placeholder" colspan="2">{{.Placeholder}}</td></tr>{{end}}
  </tbody>
</table>
<script>
(function () {
  var status = document.getElementById("status");
  var delay = parseInt(status.dataset.autohideMs, 10);
  if (delay > 0) {
    setTimeout(function () { status.classList.add("hidden"); }, delay);
  }
})();
</script>
</body>
</html>
`))
