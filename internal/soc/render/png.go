package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
)

// ErrEmptySeries is returned by PNG for a configuration without bars
var ErrEmptySeries = errors.New("no SoC values to draw")

const (
	pngHeight     = 400
	pngMinWidth   = 640
	pngBarWidth   = 24
	pngBarSpacing = 12
	pngPadding    = 160
)

// PNG draws the configuration as a static bar chart image
type PNG struct {
	w     io.Writer
	title string
}

// NewPNG creates a PNG renderer writing to w
func NewPNG(w io.Writer, title string) *PNG {
	return &PNG{w: w, title: title}
}

func toDrawing(c soc.Color) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.Alpha8()}
}

// BarChart converts cfg into a go-chart bar chart
func (r *PNG) BarChart(cfg soc.ChartConfig) chart.BarChart {
	ds := cfg.Dataset()
	lo, hi := cfg.YRange()

	bars := make([]chart.Value, len(ds.Data))
	for i, v := range ds.Data {
		label := ""
		if i < len(cfg.Data.Labels) {
			label = cfg.Data.Labels[i]
		}
		style := chart.Style{StrokeWidth: float64(ds.BorderWidth)}
		if i < len(ds.BackgroundColor) && i < len(ds.BorderColor) {
			style.FillColor = toDrawing(ds.BackgroundColor[i])
			style.StrokeColor = toDrawing(ds.BorderColor[i])
		}
		bars[i] = chart.Value{Value: v, Label: label, Style: style}
	}

	width := len(bars)*(pngBarWidth+pngBarSpacing) + pngPadding
	if width < pngMinWidth {
		width = pngMinWidth
	}

	return chart.BarChart{
		Title: r.title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Height:     pngHeight,
		Width:      width,
		BarWidth:   pngBarWidth,
		BarSpacing: pngBarSpacing,
		XAxis: chart.Style{
			FontSize:            8,
			TextRotationDegrees: 45,
		},
		YAxis: chart.YAxis{
			Name:  cfg.Options.Scales.Y.Title.Text,
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
	}
}

// Render implements soc.Renderer
func (r *PNG) Render(cfg soc.ChartConfig) error {
	if len(cfg.Dataset().Data) == 0 {
		return ErrEmptySeries
	}

	graph := r.BarChart(cfg)
	if err := graph.Render(chart.PNG, r.w); err != nil {
		return fmt.Errorf("failed to render SoC chart png: %w", err)
	}
	return nil
}
