package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jobin06/EV-Fleet-MVP/internal/auth"
	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet/fleettest"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime/cache"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

type testEnv struct {
	store *fleettest.MemoryStore
	fleet *FleetHandler
	pages *PageHandler
	auth  *AuthHandler
}

var start = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	store := fleettest.NewMemoryStore()
	for _, v := range []*contracts.Vehicle{
		{ID: "EV-1", DriverName: "Alice Smith", Status: contracts.VehicleActive, LastUpdate: start},
		{ID: "EV-2", DriverName: "Bob Jones", Status: contracts.VehicleCharging, LastUpdate: start},
	} {
		_, err := store.CreateVehicle(ctx, v)
		require.NoError(t, err)
	}
	for i, v := range []float64{10, 50, 90} {
		require.NoError(t, store.InsertTelemetry(ctx, &contracts.Telemetry{
			VehicleID: "EV-1",
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			SoC:       v,
		}))
	}

	pages, err := LoadTemplates(log)
	require.NoError(t, err)

	fleetSvc := fleet.NewService(store, nil, 20, log)
	presenter := soc.NewPresenter(soc.DefaultPolicy, log)
	authSvc := auth.NewService(store, auth.NewMemoryStore(), auth.NewLocalLimiter(2, time.Minute), time.Hour, log)

	return &testEnv{
		store: store,
		fleet: NewFleetHandler(fleetSvc, presenter, log),
		pages: NewPageHandler(fleetSvc, presenter, pages, log),
		auth:  NewAuthHandler(authSvc, pages, "fleet_session", false, log),
	}
}

func get(t *testing.T, h http.HandlerFunc, path string, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestFleetHandler_Summary(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.fleet.GetSummary, "/api/fleet/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.EqualValues(t, 2, body["total_vehicles"])
	assert.EqualValues(t, 1, body["active_vehicles"])
	assert.EqualValues(t, 1, body["charging_vehicles"])
	assert.EqualValues(t, 90, body["avg_soc"])
}

func TestFleetHandler_ListVehicles(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.fleet.ListVehicles, "/api/vehicles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
}

func TestFleetHandler_UnknownVehicle(t *testing.T) {
	env := newTestEnv(t)
	vars := map[string]string{"id": "EV-404"}

	for name, h := range map[string]http.HandlerFunc{
		"vehicle": env.fleet.GetVehicle,
		"series":  env.fleet.GetSoCSeries,
		"chart":   env.fleet.GetSoCChart,
		"png":     env.fleet.GetSoCChartPNG,
		"echarts": env.fleet.GetSoCECharts,
	} {
		t.Run(name, func(t *testing.T) {
			rec := get(t, h, "/api/vehicles/EV-404", vars)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "vehicle not found", decode(t, rec)["error"])
		})
	}
}

func TestFleetHandler_SoCChart(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.fleet.GetSoCChart, "/api/vehicles/EV-1/soc/chart", map[string]string{"id": "EV-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg struct {
		Type string `json:"type"`
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Label           string   `json:"label"`
				BackgroundColor []string `json:"backgroundColor"`
				BorderColor     []string `json:"borderColor"`
			} `json:"datasets"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))

	assert.Equal(t, "bar", cfg.Type)
	assert.Equal(t, []string{"08:00:00", "08:05:00", "08:10:00"}, cfg.Data.Labels)
	require.Len(t, cfg.Data.Datasets, 1)
	assert.Equal(t, "State of Charge (%)", cfg.Data.Datasets[0].Label)
	assert.Equal(t, []string{
		"rgba(220, 53, 69, 0.6)",
		"rgba(0, 123, 255, 0.6)",
		"rgba(40, 167, 69, 0.6)",
	}, cfg.Data.Datasets[0].BackgroundColor)
	assert.Equal(t, []string{
		"rgba(220, 53, 69, 1)",
		"rgba(0, 123, 255, 1)",
		"rgba(40, 167, 69, 1)",
	}, cfg.Data.Datasets[0].BorderColor)
}

func TestFleetHandler_SoCSeries(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.fleet.GetSoCSeries, "/api/vehicles/EV-2/soc", map[string]string{"id": "EV-2"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"labels":[],"data":[]}`, rec.Body.String())
}

func TestFleetHandler_SoCChartPNG(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.fleet.GetSoCChartPNG, "/api/vehicles/EV-1/soc/chart.png", map[string]string{"id": "EV-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG\r\n\x1a\n"))

	rec = get(t, env.fleet.GetSoCChartPNG, "/api/vehicles/EV-2/soc/chart.png", map[string]string{"id": "EV-2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no telemetry for vehicle", decode(t, rec)["error"])
}

func TestFleetHandler_SoCECharts(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.fleet.GetSoCECharts, "/api/vehicles/EV-1/soc/echarts", map[string]string{"id": "EV-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")
}

func TestFleetHandler_PostTelemetry(t *testing.T) {
	env := newTestEnv(t)

	post := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/vehicles/"+id+"/telemetry", strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"id": id})
		rec := httptest.NewRecorder()
		env.fleet.PostTelemetry(rec, req)
		return rec
	}

	rec := post("EV-2", `{"timestamp":"2026-03-01T09:00:00Z","soc":42.5,"pack_voltage":380}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "EV-2", body["vehicle_id"])
	assert.EqualValues(t, 42.5, body["soc"])

	latest, err := env.store.LatestTelemetry(context.Background(), "EV-2")
	require.NoError(t, err)
	assert.Equal(t, 42.5, latest.SoC)
	require.NotNil(t, latest.PackVoltage)
	assert.Equal(t, 380.0, *latest.PackVoltage)

	assert.Equal(t, http.StatusBadRequest, post("EV-2", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post("EV-2", `{"pack_voltage":380}`).Code)
	assert.Equal(t, http.StatusNotFound, post("EV-404", `{"soc":50}`).Code)
}

func TestFleetHandler_Lists(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CreateAlert(context.Background(), &contracts.Alert{VehicleID: "EV-1", AlertType: "Low Tire Pressure"}))

	rec := get(t, env.fleet.ListAlerts, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = get(t, env.fleet.ListChargingSessions, "/api/charging-sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []interface{}{}, body["sessions"])
}

func TestPageHandler_Dashboard(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.pages.Dashboard, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	html := rec.Body.String()
	assert.Contains(t, html, `href="/vehicle/EV-1"`)
	assert.Contains(t, html, "Bob Jones")
	assert.Contains(t, html, `id="avg-soc">90.0%`)
	assert.Contains(t, html, "N/A")
}

func TestPageHandler_VehicleDetail(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.pages.VehicleDetail, "/vehicle/EV-1", map[string]string{"id": "EV-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	html := rec.Body.String()
	assert.Contains(t, html, `id="chart-data"`)
	assert.Contains(t, html, `id="socChart"`)
	assert.Contains(t, html, "rgba(220, 53, 69, 0.6)")
	assert.Contains(t, html, "rgba(40, 167, 69, 0.6)")
	assert.Contains(t, html, "cdn.jsdelivr.net/npm/chart.js")

	rec = get(t, env.pages.VehicleDetail, "/vehicle/EV-404", map[string]string{"id": "EV-404"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageHandler_Lists(t *testing.T) {
	env := newTestEnv(t)

	rec := get(t, env.pages.ChargingHistory, "/charging_history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No charging sessions recorded.")

	rec = get(t, env.pages.Alerts, "/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No alerts.")
}

func login(env *testEnv, username, password string) *httptest.ResponseRecorder {
	return loginFrom(env, "192.0.2.1:1234", "", username, password)
}

func loginFrom(env *testEnv, remoteAddr, forwardedFor, username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	env.auth.Login(rec, req)
	return rec
}

func TestAuthHandler_Login(t *testing.T) {
	env := newTestEnv(t)

	rec := login(env, "admin", "admin")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fleet_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	env := newTestEnv(t)

	rec := login(env, "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="admin"`)

	login(env, "admin", "wrong")
	rec = login(env, "admin", "admin")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_LoginIgnoresForwardedForFromClients(t *testing.T) {
	env := newTestEnv(t)

	var codes []int
	for i := 0; i < 6; i++ {
		rec := loginFrom(env, "198.51.100.7:40000", fmt.Sprintf("10.0.0.%d", i), "admin", "wrong")
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized, http.StatusUnauthorized,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
		http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestAuthHandler_LoginBehindTrustedProxy(t *testing.T) {
	env := newTestEnv(t)
	proxies, err := ParseTrustedProxies([]string{"10.1.0.0/16"})
	require.NoError(t, err)
	env.auth.WithTrustedProxies(proxies)

	// Two clients behind the same proxy are throttled separately
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, loginFrom(env, "10.1.0.5:80", "203.0.113.1", "admin", "wrong").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(env, "10.1.0.5:80", "203.0.113.1", "admin", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, loginFrom(env, "10.1.0.5:80", "203.0.113.2", "admin", "wrong").Code)

	// A client cannot escape by prepending hops of its own
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(env, "10.1.0.5:80", "1.2.3.4, 203.0.113.1", "admin", "wrong").Code)
}

func TestAuthHandler_RequireLogin(t *testing.T) {
	env := newTestEnv(t)

	var seen *auth.Session
	guarded := env.auth.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = serve(http.MethodGet, "/api/vehicles", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "login required", decode(t, rec)["error"])

	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodGet, "/static/style.css", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodOptions, "/api/vehicles", nil).Code)

	stale := &http.Cookie{Name: "fleet_session", Value: "stale"}
	assert.Equal(t, http.StatusSeeOther, serve(http.MethodGet, "/dashboard", stale).Code)

	cookie := login(env, "admin", "admin").Result().Cookies()[0]
	rec = serve(http.MethodGet, "/dashboard", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "admin", seen.Username)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := newTestEnv(t)
	cookie := login(env, "admin", "admin").Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.auth.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, err := env.auth.session(req)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestClientIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		xff     string
		proxies TrustedProxies
		want    string
	}{
		{name: "no proxies", remote: "10.0.0.7:51234", want: "10.0.0.7"},
		{name: "untrusted peer ignores header", remote: "198.51.100.7:1", xff: "203.0.113.9", proxies: proxies, want: "198.51.100.7"},
		{name: "header without proxies", remote: "10.0.0.7:1", xff: "203.0.113.9", want: "10.0.0.7"},
		{name: "trusted peer", remote: "10.0.0.7:1", xff: "203.0.113.9", proxies: proxies, want: "203.0.113.9"},
		{name: "right-most untrusted hop", remote: "10.0.0.7:1", xff: "1.1.1.1, 203.0.113.9, 10.2.3.4", proxies: proxies, want: "203.0.113.9"},
		{name: "single trusted address", remote: "192.0.2.10:1", xff: "203.0.113.9", proxies: proxies, want: "203.0.113.9"},
		{name: "garbage hop stops the walk", remote: "10.0.0.7:1", xff: "203.0.113.9, nonsense", proxies: proxies, want: "10.0.0.7"},
		{name: "only proxies in header", remote: "10.0.0.7:1", xff: "10.0.0.8", proxies: proxies, want: "10.0.0.7"},
		{name: "no port", remote: "198.51.100.7", want: "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.proxies))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"127.0.0.1", "fd00::/8"})
	require.NoError(t, err)
	assert.True(t, proxies.Contains("127.0.0.1"))
	assert.True(t, proxies.Contains("fd00::1"))
	assert.False(t, proxies.Contains("127.0.0.2"))
	assert.False(t, proxies.Contains("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestStaticHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/live.js", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/ws/fleet")
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ev realtime.Event) {
	p.events = append(p.events, ev)
}

func TestFleetHandler_PostTelemetryLive(t *testing.T) {
	env := newTestEnv(t)
	pub := &recordingPublisher{}
	env.fleet.WithLive(pub, cache.NewTelemetryCache(time.Hour, nil))

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/vehicles/EV-1/telemetry", strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"id": "EV-1"})
		rec := httptest.NewRecorder()
		env.fleet.PostTelemetry(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, post(`{"timestamp":"2026-03-01T09:00:00Z","soc":25}`))
	require.Equal(t, http.StatusCreated, post(`{"timestamp":"2026-03-01T08:30:00Z","soc":30}`))

	require.Len(t, pub.events, 1)
	assert.Equal(t, realtime.EventTelemetry, pub.events[0].Type)
	require.NotNil(t, pub.events[0].Telemetry)
	assert.Equal(t, 25.0, pub.events[0].Telemetry.SoC)
}
