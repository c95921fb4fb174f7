package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChartRenderer(t *testing.T) {
	t.Parallel()

	cr, err := NewChartRenderer(50, 400)
	assert.Nil(t, cr)
	assert.True(t, cr.IsInterfaceNil())
	require.Error(t, err)

	cr, err = NewChartRenderer(800, 300)
	require.NoError(t, err)
	assert.False(t, cr.IsInterfaceNil())
}

func TestChartRenderer_Render(t *testing.T) {
	t.Parallel()

	cr, _ := NewChartRenderer(640, 240)
	data := ChartData{
		Title:  "cpu_usage (raw)",
		Labels: []string{"Oct 15 11:00", "Oct 15 11:01", "Oct 15 11:02", "Oct 15 11:03"},
		Values: []*float64{float(1), float(2), nil, float(4)},
	}

	t.Run("png", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := cr.Render(buf, data, FormatPNG)
		require.NoError(t, err)

		img, err := png.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, 640, img.Bounds().Dx())
		assert.Equal(t, 240, img.Bounds().Dy())
	})
	t.Run("svg", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := cr.Render(buf, data, FormatSVG)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "<svg")
	})
	t.Run("constant single value", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := cr.Render(buf, ChartData{Title: "x", Labels: []string{"a"}, Values: []*float64{float(5)}}, FormatPNG)
		require.NoError(t, err)
	})
	t.Run("empty data renders a blank placeholder", func(t *testing.T) {
		buf := &bytes.Buffer{}
		err := cr.Render(buf, EmptyChart(), FormatPNG)
		require.NoError(t, err)

		img, err := png.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, 640, img.Bounds().Dx())

		buf.Reset()
		err = cr.Render(buf, ChartData{Labels: []string{"a", "b"}, Values: []*float64{nil, nil}}, FormatSVG)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `width="640"`)
	})
	t.Run("unknown format for blank chart should error", func(t *testing.T) {
		err := cr.Render(&bytes.Buffer{}, EmptyChart(), Format("gif"))
		require.Error(t, err)
	})
}

func TestSplitSegments(t *testing.T) {
	t.Parallel()

	segments := splitSegments([]*float64{float(1), float(2), nil, nil, float(5), nil, float(7), float(8)})
	require.Len(t, segments, 3)
	assert.Equal(t, []float64{0, 1}, segments[0].xs)
	assert.Equal(t, []float64{1, 2}, segments[0].ys)
	assert.Equal(t, []float64{4}, segments[1].xs)
	assert.Equal(t, []float64{6, 7}, segments[2].xs)
	assert.Equal(t, []float64{7, 8}, segments[2].ys)

	assert.Empty(t, splitSegments([]*float64{nil, nil}))
}

func TestXTicks(t *testing.T) {
	t.Parallel()

	assert.Nil(t, xTicks(nil))

	labels := make([]string, 20)
	for i := range labels {
		labels[i] = string(rune('a' + i))
	}
	ticks := xTicks(labels)
	assert.LessOrEqual(t, len(ticks), maxXTicks)
	assert.Equal(t, "a", ticks[0].Label)
	assert.Equal(t, 0.0, ticks[0].Value)
	assert.Equal(t, 3.0, ticks[1].Value)
}
