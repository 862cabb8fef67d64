package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime/cache"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc/render"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// Publisher receives live events
type Publisher interface {
	Publish(ev realtime.Event)
}

// FleetHandler serves the JSON API and the rendered SoC charts
// ⭐ SSOT: fleet API handlers live here only
type FleetHandler struct {
	fleet     *fleet.Service
	presenter *soc.Presenter
	publisher Publisher
	latest    *cache.TelemetryCache
	logger    *logger.Logger
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(fleetSvc *fleet.Service, presenter *soc.Presenter, log *logger.Logger) *FleetHandler {
	return &FleetHandler{
		fleet:     fleetSvc,
		presenter: presenter,
		logger:    log,
	}
}

// WithLive makes recorded telemetry stream to dashboards. Readings older than
// the one already in latest are stored but not broadcast.
func (h *FleetHandler) WithLive(publisher Publisher, latest *cache.TelemetryCache) *FleetHandler {
	h.publisher = publisher
	h.latest = latest
	return h
}

// fail maps service errors to responses
func (h *FleetHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, fleet.ErrNotFound) {
		respondError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	h.logger.WithVehicle(mux.Vars(r)["id"]).WithError(err).Error(msg)
	respondError(w, http.StatusInternalServerError, msg)
}

// GetSummary returns the fleet headline numbers
// GET /api/fleet/summary
func (h *FleetHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.fleet.Summary(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve fleet summary")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ListVehicles returns every vehicle with its current SoC
// GET /api/vehicles
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.fleet.Vehicles(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve vehicles")
		return
	}
	if vehicles == nil {
		vehicles = []*contracts.Vehicle{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"count":    len(vehicles),
	})
}

// GetVehicle returns the vehicle page model
// GET /api/vehicles/{id}
func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	detail, err := h.fleet.VehicleDetail(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve vehicle")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

type telemetryRequest struct {
	Timestamp   *time.Time `json:"timestamp"`
	SoC         *float64   `json:"soc"`
	PackVoltage *float64   `json:"pack_voltage"`
	PackCurrent *float64   `json:"pack_current"`
	Temperature *float64   `json:"temperature"`
}

// PostTelemetry records a reading
// POST /api/vehicles/{id}/telemetry
func (h *FleetHandler) PostTelemetry(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SoC == nil {
		respondError(w, http.StatusBadRequest, "soc is required")
		return
	}

	t := &contracts.Telemetry{
		VehicleID:   mux.Vars(r)["id"],
		Timestamp:   time.Now().UTC(),
		SoC:         *req.SoC,
		PackVoltage: req.PackVoltage,
		PackCurrent: req.PackCurrent,
		Temperature: req.Temperature,
	}
	if req.Timestamp != nil {
		t.Timestamp = req.Timestamp.UTC()
	}
	if err := t.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fleet.RecordTelemetry(r.Context(), t); err != nil {
		h.fail(w, r, err, "Failed to record telemetry")
		return
	}
	if h.publisher != nil && h.latest != nil && h.latest.Update(t) {
		h.publisher.Publish(realtime.TelemetryEvent(t))
	}
	respondJSON(w, http.StatusCreated, t)
}

// GetSoCSeries returns the chart payload of a vehicle
// GET /api/vehicles/{id}/soc
func (h *FleetHandler) GetSoCSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.series(r)
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve SoC series")
		return
	}
	respondJSON(w, http.StatusOK, series)
}

// GetSoCChart returns the Chart.js configuration of a vehicle
// GET /api/vehicles/{id}/soc/chart
func (h *FleetHandler) GetSoCChart(w http.ResponseWriter, r *http.Request) {
	series, err := h.series(r)
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve SoC series")
		return
	}
	respondJSON(w, http.StatusOK, h.presenter.Config(series))
}

// GetSoCChartPNG draws the SoC chart as an image
// GET /api/vehicles/{id}/soc/chart.png
func (h *FleetHandler) GetSoCChartPNG(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, "image/png", func(buf *bytes.Buffer, title string) soc.Renderer {
		return render.NewPNG(buf, title)
	})
}

// GetSoCECharts renders the SoC chart as an ECharts page
// GET /api/vehicles/{id}/soc/echarts
func (h *FleetHandler) GetSoCECharts(w http.ResponseWriter, r *http.Request) {
	h.renderChart(w, r, "text/html; charset=utf-8", func(buf *bytes.Buffer, title string) soc.Renderer {
		return render.NewECharts(buf, title)
	})
}

// renderChart runs the presenter for one vehicle into the renderer built by mk
func (h *FleetHandler) renderChart(w http.ResponseWriter, r *http.Request, contentType string, mk func(*bytes.Buffer, string) soc.Renderer) {
	series, err := h.series(r)
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve SoC series")
		return
	}
	if series.Len() == 0 {
		respondError(w, http.StatusNotFound, "no telemetry for vehicle")
		return
	}

	raw, err := json.Marshal(series)
	if err != nil {
		h.fail(w, r, err, "Failed to encode SoC series")
		return
	}

	var buf bytes.Buffer
	doc := soc.MapDocument{soc.ChartDataElementID: string(raw)}
	title := "State of Charge · " + mux.Vars(r)["id"]
	if h.presenter.Initialize(doc, mk(&buf, title)) != soc.OutcomeRendered {
		respondError(w, http.StatusInternalServerError, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *FleetHandler) series(r *http.Request) (soc.TimeSeries, error) {
	return h.fleet.SoCSeries(r.Context(), mux.Vars(r)["id"])
}

// ListChargingSessions returns the charging history, newest first
// GET /api/charging-sessions
func (h *FleetHandler) ListChargingSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.fleet.ChargingSessions(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve charging sessions")
		return
	}
	if sessions == nil {
		sessions = []*contracts.ChargingSession{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// ListAlerts returns every alert, newest first
// GET /api/alerts
func (h *FleetHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.fleet.Alerts(r.Context())
	if err != nil {
		h.fail(w, r, err, "Failed to retrieve alerts")
		return
	}
	if alerts == nil {
		alerts = []*contracts.Alert{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
