package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
)

// ECharts renders the configuration as a standalone go-echarts bar chart page
type ECharts struct {
	w      io.Writer
	title  string
	width  string
	height string
}

// NewECharts creates an ECharts renderer writing to w
func NewECharts(w io.Writer, title string) *ECharts {
	return &ECharts{
		w:      w,
		title:  title,
		width:  "900px",
		height: "400px",
	}
}

// Bar converts cfg into a go-echarts bar chart with per-bar tier colors
func (r *ECharts) Bar(cfg soc.ChartConfig) *charts.Bar {
	ds := cfg.Dataset()
	lo, hi := cfg.YRange()

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: r.title,
			Width:     r.width,
			Height:    r.height,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: r.title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(cfg.Options.Plugins.Legend.Display),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: cfg.Options.Scales.X.Title.Text,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: cfg.Options.Scales.Y.Title.Text,
			Min:  lo,
			Max:  hi,
		}),
	)

	items := make([]opts.BarData, len(ds.Data))
	for i, v := range ds.Data {
		item := opts.BarData{Value: v}
		if i < len(ds.BackgroundColor) && i < len(ds.BorderColor) {
			item.ItemStyle = &opts.ItemStyle{
				Color:       ds.BackgroundColor[i].String(),
				BorderColor: ds.BorderColor[i].String(),
			}
		}
		items[i] = item
	}

	bar.SetXAxis(cfg.Data.Labels).
		AddSeries(ds.Label, items)

	return bar
}

// Render implements soc.Renderer
func (r *ECharts) Render(cfg soc.ChartConfig) error {
	if err := r.Bar(cfg).Render(r.w); err != nil {
		return fmt.Errorf("failed to render echarts page: %w", err)
	}
	return nil
}
