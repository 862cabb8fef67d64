package soc

import (
	"errors"
	"fmt"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// ChartDataElementID is the id of the element carrying the JSON payload
const ChartDataElementID = "chart-data"

// Renderer draws a chart configuration onto some surface
type Renderer interface {
	Render(cfg ChartConfig) error
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(cfg ChartConfig) error

// Render implements Renderer
func (f RendererFunc) Render(cfg ChartConfig) error {
	return f(cfg)
}

// Stage names where chart setup failed
type Stage string

const (
	StageParse  Stage = "parse"
	StageRender Stage = "render"
)

// SetupFailure is the only error kind of the presenter: bad input or a failed render
type SetupFailure struct {
	Stage Stage
	Err   error
}

func (e *SetupFailure) Error() string {
	return fmt.Sprintf("chart setup failed (%s): %v", e.Stage, e.Err)
}

func (e *SetupFailure) Unwrap() error {
	return e.Err
}

// IsSetupFailure reports whether err is, or wraps, a SetupFailure
func IsSetupFailure(err error) bool {
	var sf *SetupFailure
	return errors.As(err, &sf)
}

// Outcome is what a single Initialize call ended with
type Outcome int

const (
	// OutcomeNoData means the document carries no chart payload
	OutcomeNoData Outcome = iota
	OutcomeRendered
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoData:
		return "no-data"
	case OutcomeRendered:
		return "rendered"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Presenter turns an embedded SoC payload into a chart and hands it to a renderer
// ⭐ SSOT: SoC color coding and chart assembly happen here only
type Presenter struct {
	policy Policy
	logger *logger.Logger
}

// NewPresenter creates a presenter using policy
func NewPresenter(policy Policy, log *logger.Logger) *Presenter {
	if log == nil {
		log = logger.Nop()
	}
	return &Presenter{
		policy: policy,
		logger: log.WithComponent("soc"),
	}
}

// Initialize runs once per page. A missing payload element is a silent no-op.
// Any failure is logged once and swallowed; the renderer is only invoked with a
// complete configuration.
func (p *Presenter) Initialize(doc Document, r Renderer) Outcome {
	text, ok := doc.ElementText(ChartDataElementID)
	if !ok {
		return OutcomeNoData
	}

	cfg, err := p.Prepare([]byte(text))
	if err == nil {
		err = p.render(r, cfg)
	}
	if err != nil {
		p.logger.WithError(err).Error("Error setting up chart")
		return OutcomeFailed
	}

	p.logger.WithField("points", len(cfg.Dataset().Data)).Debug("SoC chart rendered")
	return OutcomeRendered
}

// Prepare parses a payload and builds its chart configuration
func (p *Presenter) Prepare(raw []byte) (ChartConfig, error) {
	ts, err := ParseTimeSeries(raw)
	if err != nil {
		return ChartConfig{}, &SetupFailure{Stage: StageParse, Err: err}
	}
	return p.Config(ts), nil
}

// Config builds the configuration of an already valid series
func (p *Presenter) Config(ts TimeSeries) ChartConfig {
	fill, border := p.policy.DeriveColors(ts.Data)
	return BuildConfig(ts.Labels, ts.Data, fill, border)
}

// render calls the renderer, turning errors and panics into a SetupFailure
func (p *Presenter) render(r Renderer, cfg ChartConfig) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &SetupFailure{Stage: StageRender, Err: fmt.Errorf("renderer panic: %v", rec)}
		}
	}()

	if r == nil {
		return &SetupFailure{Stage: StageRender, Err: errors.New("no renderer")}
	}
	if err := r.Render(cfg); err != nil {
		return &SetupFailure{Stage: StageRender, Err: err}
	}
	return nil
}
