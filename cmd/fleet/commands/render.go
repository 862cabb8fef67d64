package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc/render"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a SoC chart from a page or payload file",
	Long: `Run the SoC chart presenter on a file and write the chart.

The input is either an HTML page containing a
<script id="chart-data" type="application/json"> element, or a .json file
holding the payload itself: {"labels": [...], "data": [...]}.
Use "-" to read the payload from stdin.

Formats:
  chartjs  - embeddable canvas + Chart.js script
  page     - standalone HTML page using Chart.js
  echarts  - standalone HTML page using ECharts
  png      - static PNG image
  json     - the Chart.js configuration

Example:
  go run ./cmd/fleet render vehicle.html --format png -o soc.png
  go run ./cmd/fleet render payload.json --format json
  curl -s localhost:5000/api/vehicles/EV-1001/soc | go run ./cmd/fleet render - --format page`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderFormat string
	renderOutput string
	renderTitle  string
	renderLow    float64
	renderHigh   float64
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "page", "output format (chartjs|page|echarts|png|json)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file (default stdout)")
	renderCmd.Flags().StringVar(&renderTitle, "title", "State of Charge", "chart page title")
	renderCmd.Flags().Float64Var(&renderLow, "low", soc.DefaultPolicy.LowThreshold, "SoC below this is low")
	renderCmd.Flags().Float64Var(&renderHigh, "high", soc.DefaultPolicy.HighThreshold, "SoC at or above this is high")
}

func runRender(cmd *cobra.Command, args []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), level)

	policy, err := soc.DefaultPolicy.WithThresholds(renderLow, renderHigh)
	if err != nil {
		return err
	}

	doc, err := readDocument(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	renderer, err := newRenderer(renderFormat, &buf, renderTitle)
	if err != nil {
		return err
	}

	switch outcome := soc.NewPresenter(policy, log).Initialize(doc, renderer); outcome {
	case soc.OutcomeRendered:
	case soc.OutcomeNoData:
		return fmt.Errorf("%s has no #%s element", args[0], soc.ChartDataElementID)
	default:
		return fmt.Errorf("chart setup failed for %s", args[0])
	}

	if renderOutput == "" {
		_, err = buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := os.WriteFile(renderOutput, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", renderOutput, err)
	}
	PrintSuccess(cmd.ErrOrStderr(), "Chart written to "+renderOutput)
	return nil
}

// readDocument loads an HTML page, or a bare payload for .json files and stdin
func readDocument(stdin io.Reader, path string) (soc.Document, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if path == "-" || strings.EqualFold(filepath.Ext(path), ".json") {
		return soc.MapDocument{soc.ChartDataElementID: string(raw)}, nil
	}

	doc, err := soc.NewHTMLDocument(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func newRenderer(format string, w io.Writer, title string) (soc.Renderer, error) {
	switch format {
	case "chartjs":
		return render.NewChartJS(w), nil
	case "page":
		return render.NewChartJSPage(w, title), nil
	case "echarts":
		return render.NewECharts(w, title), nil
	case "png":
		return render.NewPNG(w, title), nil
	case "json":
		return soc.RendererFunc(func(cfg soc.ChartConfig) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		}), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want chartjs, page, echarts, png or json)", format)
	}
}
