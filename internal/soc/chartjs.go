package soc

// Chart.js configuration, serialized with the field names Chart.js expects.

const (
	ChartTypeBar   = "bar"
	DatasetLabel   = "State of Charge (%)"
	ValueAxisTitle = "SoC (%)"
	TimeAxisTitle  = "Time"

	AxisMin = 0.0
	AxisMax = 100.0
)

// ChartConfig is the value handed to a Renderer
type ChartConfig struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor []Color   `json:"backgroundColor"`
	BorderColor     []Color   `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
}

type ChartOptions struct {
	Responsive bool    `json:"responsive"`
	Scales     Scales  `json:"scales"`
	Plugins    Plugins `json:"plugins"`
}

type Scales struct {
	Y Axis `json:"y"`
	X Axis `json:"x"`
}

type Axis struct {
	BeginAtZero bool      `json:"beginAtZero,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Title       AxisTitle `json:"title"`
}

type AxisTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
}

type Legend struct {
	Display bool `json:"display"`
}

// BuildConfig assembles the bar chart configuration. The slices are copied so
// the returned value does not alias the caller's data.
func BuildConfig(labels []string, data []float64, fill, border []Color) ChartConfig {
	lo, hi := AxisMin, AxisMax

	return ChartConfig{
		Type: ChartTypeBar,
		Data: ChartData{
			Labels: append(make([]string, 0, len(labels)), labels...),
			Datasets: []Dataset{{
				Label:           DatasetLabel,
				Data:            append(make([]float64, 0, len(data)), data...),
				BackgroundColor: append(make([]Color, 0, len(fill)), fill...),
				BorderColor:     append(make([]Color, 0, len(border)), border...),
				BorderWidth:     1,
			}},
		},
		Options: ChartOptions{
			Responsive: true,
			Scales: Scales{
				Y: Axis{
					BeginAtZero: true,
					Min:         &lo,
					Max:         &hi,
					Title:       AxisTitle{Display: true, Text: ValueAxisTitle},
				},
				X: Axis{
					Title: AxisTitle{Display: true, Text: TimeAxisTitle},
				},
			},
			Plugins: Plugins{
				Legend: Legend{Display: false},
			},
		},
	}
}

// Dataset returns the single SoC dataset
func (c ChartConfig) Dataset() Dataset {
	if len(c.Data.Datasets) == 0 {
		return Dataset{}
	}
	return c.Data.Datasets[0]
}

// YRange returns the value axis bounds, defaulting to 0..100
func (c ChartConfig) YRange() (float64, float64) {
	lo, hi := AxisMin, AxisMax
	if c.Options.Scales.Y.Min != nil {
		lo = *c.Options.Scales.Y.Min
	}
	if c.Options.Scales.Y.Max != nil {
		hi = *c.Options.Scales.Y.Max
	}
	return lo, hi
}
