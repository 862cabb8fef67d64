package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobin06/EV-Fleet-MVP/internal/api/handlers"
	"github.com/Jobin06/EV-Fleet-MVP/internal/auth"
	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet/fleettest"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

func newTestServer(t *testing.T) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	store := fleettest.NewMemoryStore()
	_, err := store.CreateVehicle(ctx, &contracts.Vehicle{ID: "EV-1001", DriverName: "Alice Smith", Status: contracts.VehicleActive, LastUpdate: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, store.InsertTelemetry(ctx, &contracts.Telemetry{VehicleID: "EV-1001", Timestamp: time.Now().UTC(), SoC: 72}))

	pages, err := handlers.LoadTemplates(log)
	require.NoError(t, err)

	fleetSvc := fleet.NewService(store, nil, 20, log)
	presenter := soc.NewPresenter(soc.DefaultPolicy, log)
	authSvc := auth.NewService(store, auth.NewMemoryStore(), auth.NewLocalLimiter(10, time.Minute), time.Hour, log)
	hub := realtime.NewHub(4, log)
	t.Cleanup(hub.Close)

	router := NewRouter(Handlers{
		Auth:  handlers.NewAuthHandler(authSvc, pages, "fleet_session", false, log),
		Pages: handlers.NewPageHandler(fleetSvc, presenter, pages, log),
		Fleet: handlers.NewFleetHandler(fleetSvc, presenter, log),
		Hub:   hub,
	}, []string{"*"}, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func loginClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	client := newClient(t)
	resp, err := client.PostForm(srv.URL+"/login", url.Values{"username": {"admin"}, "password": {"admin"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	return client
}

func TestRouter_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ev-fleet-api", body["service"])
}

func TestRouter_RequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newClient(t)

	resp, err := client.Get(srv.URL + "/api/vehicles")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/vehicle/EV-1001")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, err = client.Get(srv.URL + "/static/style.css")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/login")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_AuthenticatedRoutes(t *testing.T) {
	srv, _ := newTestServer(t)
	client := loginClient(t, srv)

	for _, path := range []string{
		"/",
		"/dashboard",
		"/vehicle/EV-1001",
		"/charging_history",
		"/alerts",
		"/api/fleet/summary",
		"/api/vehicles",
		"/api/vehicles/EV-1001",
		"/api/vehicles/EV-1001/soc",
		"/api/vehicles/EV-1001/soc/chart",
		"/api/vehicles/EV-1001/soc/chart.png",
		"/api/vehicles/EV-1001/soc/echarts",
		"/api/charging-sessions",
		"/api/alerts",
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := client.Get(srv.URL + path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}

	resp, err := client.Get(srv.URL + "/api/vehicles/EV-9999")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = client.Post(srv.URL+"/api/vehicles/EV-1001/telemetry", "application/json", strings.NewReader(`{"soc":12}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/api/vehicles")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/vehicles", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_FleetWebsocket(t *testing.T) {
	srv, hub := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/fleet"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	client := loginClient(t, srv)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(realtime.SummaryEvent(&contracts.FleetSummary{TotalVehicles: 1, AverageSoC: 72}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, realtime.EventFleetSummary, ev.Type)
	require.NotNil(t, ev.Summary)
	assert.Equal(t, 72.0, ev.Summary.AverageSoC)
}
