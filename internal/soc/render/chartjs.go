package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
)

// CanvasID is the canvas the Chart.js snippet draws on
const CanvasID = "socChart"

// ChartJSLibrary is loaded by standalone pages
const ChartJSLibrary = "https://cdn.jsdelivr.net/npm/chart.js"

var chartJSTemplate = template.Must(template.New("chartjs").Parse(`<div class="chart-container">
<canvas id="{{.CanvasID}}"></canvas>
</div>
<script>
(function () {
  var el = document.getElementById({{.CanvasID}});
  if (!el) { return; }
  try {
    new Chart(el.getContext('2d'), {{.Config}});
  } catch (e) {
    console.error("Error setting up chart:", e);
  }
})();
</script>
`))

var chartJSPageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.Library}}"></script>
</head>
<body>
{{.Snippet}}
</body>
</html>
`))

// ChartJS writes an embeddable Chart.js snippet for a configuration
type ChartJS struct {
	w        io.Writer
	canvasID string
	page     string
}

// NewChartJS creates a snippet renderer writing to w
func NewChartJS(w io.Writer) *ChartJS {
	return &ChartJS{w: w, canvasID: CanvasID}
}

// NewChartJSPage creates a renderer writing a complete HTML page titled title
func NewChartJSPage(w io.Writer, title string) *ChartJS {
	return &ChartJS{w: w, canvasID: CanvasID, page: title}
}

// Render implements soc.Renderer
func (r *ChartJS) Render(cfg soc.ChartConfig) error {
	snippet, err := chartJSSnippet(r.canvasID, cfg)
	if err != nil {
		return err
	}

	if r.page == "" {
		_, err = io.WriteString(r.w, string(snippet))
		return err
	}

	return chartJSPageTemplate.Execute(r.w, struct {
		Title   string
		Library string
		Snippet template.HTML
	}{r.page, ChartJSLibrary, snippet})
}

// ChartJSSnippet returns the canvas and script block for cfg
func ChartJSSnippet(cfg soc.ChartConfig) (template.HTML, error) {
	return chartJSSnippet(CanvasID, cfg)
}

func chartJSSnippet(canvasID string, cfg soc.ChartConfig) (template.HTML, error) {
	var buf bytes.Buffer
	err := chartJSTemplate.Execute(&buf, struct {
		CanvasID string
		Config   soc.ChartConfig
	}{canvasID, cfg})
	if err != nil {
		return "", fmt.Errorf("failed to render chart.js snippet: %w", err)
	}
	return template.HTML(buf.String()), nil
}
