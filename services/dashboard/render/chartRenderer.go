package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is the output encoding of a rendered chart
type Format string

const (
	// FormatPNG renders a PNG image
	FormatPNG Format = "png"
	// FormatSVG renders an SVG document
	FormatSVG Format = "svg"

	maxXTicks = 8
	minSize   = 100
)

var lineColor = drawing.ColorFromHex("007bff")

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}

	return "image/png"
}

type chartRenderer struct {
	width  int
	height int
}

// NewChartRenderer creates a go-chart based renderer producing images of the provided size
func NewChartRenderer(width int, height int) (*chartRenderer, error) {
	if width < minSize || height < minSize {
		return nil, fmt.Errorf("chart size %dx%d is too small, minimum is %dx%d", width, height, minSize, minSize)
	}

	return &chartRenderer{
		width:  width,
		height: height,
	}, nil
}

// Render draws the line chart. Nil values break the line so that a missing observation is a gap.
func (cr *chartRenderer) Render(w io.Writer, data ChartData, format Format) error {
	segments := splitSegments(data.Values)
	if len(segments) == 0 {
		return cr.renderBlank(w, format)
	}

	minY, maxY := valueBounds(data.Values)
	if minY == maxY {
		pad := math.Max(math.Abs(minY)*0.1, 1)
		minY, maxY = minY-pad, maxY+pad
	}

	series := make([]chart.Series, 0, len(segments))
	for _, seg := range segments {
		series = append(series, chart.ContinuousSeries{
			Name: data.Title,
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: lineColor,
				FillColor:   lineColor.WithAlpha(25),
				DotWidth:    2,
				DotColor:    lineColor,
			},
			XValues: seg.xs,
			YValues: seg.ys,
		})
	}

	ch := chart.Chart{
		Title:      data.Title,
		Width:      cr.width,
		Height:     cr.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "Time",
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(float64(len(data.Labels)-1), 1)},
			Ticks: xTicks(data.Labels),
		},
		YAxis: chart.YAxis{
			Name:  "Value",
			Range: &chart.ContinuousRange{Min: minY, Max: maxY},
		},
		Series: series,
	}

	provider := chart.PNG
	if format == FormatSVG {
		provider = chart.SVG
	}

	return ch.Render(provider, w)
}

// renderBlank produces a placeholder of the same size for the cleared chart
func (cr *chartRenderer) renderBlank(w io.Writer, format Format) error {
	switch format {
	case FormatSVG:
		_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="100%%" height="100%%" fill="white"/></svg>`,
			cr.width, cr.height)
		return err
	case FormatPNG:
		img := image.NewRGBA(image.Rect(0, 0, cr.width, cr.height))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
		return png.Encode(w, img)
	default:
		return errors.New("unknown chart format " + string(format))
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (cr *chartRenderer) IsInterfaceNil() bool {
	return cr == nil
}

type segment struct {
	xs []float64
	ys []float64
}

func splitSegments(values []*float64) []segment {
	segments := make([]segment, 0)
	var current *segment
	for i, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			current = nil
			continue
		}
		if current == nil {
			segments = append(segments, segment{})
			current = &segments[len(segments)-1]
		}

		current.xs = append(current.xs, float64(i))
		current.ys = append(current.ys, *v)
	}

	return segments
}

func valueBounds(values []*float64) (float64, float64) {
	minY := math.MaxFloat64
	maxY := -math.MaxFloat64
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}

		minY = math.Min(minY, *v)
		maxY = math.Max(maxY, *v)
	}

	return minY, maxY
}

func xTicks(labels []string) []chart.Tick {
	if len(labels) == 0 {
		return nil
	}

	step := 1
	if len(labels) > maxXTicks {
		step = int(math.Ceil(float64(len(labels)) / float64(maxXTicks)))
	}

	ticks := make([]chart.Tick, 0, maxXTicks+1)
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}

	return ticks
}
