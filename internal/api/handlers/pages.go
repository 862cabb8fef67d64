package handlers

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc/render"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// PageHandler serves the HTML dashboard
type PageHandler struct {
	fleet     *fleet.Service
	presenter *soc.Presenter
	pages     *Templates
	logger    *logger.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(fleetSvc *fleet.Service, presenter *soc.Presenter, pages *Templates, log *logger.Logger) *PageHandler {
	return &PageHandler{
		fleet:     fleetSvc,
		presenter: presenter,
		pages:     pages,
		logger:    log,
	}
}

func (h *PageHandler) base(r *http.Request, title string) pageData {
	data := pageData{Title: title}
	if s, ok := SessionFromContext(r.Context()); ok {
		data.Username = s.Username
	}
	return data
}

func (h *PageHandler) fail(w http.ResponseWriter, err error, msg string) {
	h.logger.WithError(err).Error(msg)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

type dashboardPage struct {
	pageData
	*fleet.Dashboard
}

// Dashboard renders the fleet overview
// GET / and GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.fleet.Dashboard(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to load dashboard")
		return
	}
	h.pages.Render(w, http.StatusOK, "dashboard.html", dashboardPage{h.base(r, "Dashboard"), dash})
}

type vehiclePage struct {
	pageData
	*fleet.VehicleDetail
	Payload template.HTML
	Chart   template.HTML
}

// VehicleDetail renders a vehicle with its SoC chart
// GET /vehicle/{id}
func (h *PageHandler) VehicleDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	detail, err := h.fleet.VehicleDetail(r.Context(), id)
	if errors.Is(err, fleet.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, err, "Failed to load vehicle")
		return
	}

	payload, err := soc.EmbedPayload(detail.Series)
	if err != nil {
		h.fail(w, err, "Failed to embed chart data")
		return
	}

	page := vehiclePage{
		pageData:      h.base(r, "Vehicle "+detail.Vehicle.ID),
		VehicleDetail: detail,
		Payload:       payload,
		Chart:         h.chart(payload),
	}
	h.pages.Render(w, http.StatusOK, "vehicle_detail.html", page)
}

// chart runs the presenter over the embedded payload. A failed setup leaves
// the page without a chart.
func (h *PageHandler) chart(payload template.HTML) template.HTML {
	doc, err := soc.NewHTMLDocumentFromString(string(payload))
	if err != nil {
		h.logger.WithError(err).Error("Failed to parse chart payload")
		return ""
	}

	var buf bytes.Buffer
	if h.presenter.Initialize(doc, render.NewChartJS(&buf)) != soc.OutcomeRendered {
		return ""
	}
	return template.HTML(buf.String())
}

type chargingPage struct {
	pageData
	Sessions []*contracts.ChargingSession
}

// ChargingHistory lists every charging session, newest first
// GET /charging_history
func (h *PageHandler) ChargingHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.fleet.ChargingSessions(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to load charging history")
		return
	}
	h.pages.Render(w, http.StatusOK, "charging_history.html", chargingPage{h.base(r, "Charging History"), sessions})
}

type alertsPage struct {
	pageData
	Alerts []*contracts.Alert
}

// Alerts lists every alert, newest first
// GET /alerts
func (h *PageHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.fleet.Alerts(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to load alerts")
		return
	}
	h.pages.Render(w, http.StatusOK, "alerts.html", alertsPage{h.base(r, "Alerts"), alerts})
}
