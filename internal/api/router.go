package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Jobin06/EV-Fleet-MVP/internal/api/handlers"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// Handlers bundles everything the router dispatches to
type Handlers struct {
	Auth  *handlers.AuthHandler
	Pages *handlers.PageHandler
	Fleet *handlers.FleetHandler
	Hub   *realtime.Hub
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routing is configured here only
func NewRouter(h Handlers, allowedOrigins []string, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Static assets
	r.PathPrefix("/static/").Handler(handlers.StaticHandler())

	// Login
	r.HandleFunc("/login", h.Auth.LoginPage).Methods("GET")
	r.HandleFunc("/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/logout", h.Auth.Logout).Methods("GET", "POST")

	// Pages
	r.HandleFunc("/", h.Pages.Dashboard).Methods("GET")
	r.HandleFunc("/dashboard", h.Pages.Dashboard).Methods("GET")
	r.HandleFunc("/vehicle/{id}", h.Pages.VehicleDetail).Methods("GET")
	r.HandleFunc("/charging_history", h.Pages.ChargingHistory).Methods("GET")
	r.HandleFunc("/alerts", h.Pages.Alerts).Methods("GET")

	// Live fleet summary
	r.HandleFunc("/ws/fleet", h.Hub.ServeWS).Methods("GET")

	// JSON API
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware(allowedOrigins))

	api.HandleFunc("/fleet/summary", h.Fleet.GetSummary).Methods("GET", "OPTIONS")
	api.HandleFunc("/vehicles", h.Fleet.ListVehicles).Methods("GET", "OPTIONS")
	api.HandleFunc("/vehicles/{id}", h.Fleet.GetVehicle).Methods("GET", "OPTIONS")
	api.HandleFunc("/vehicles/{id}/telemetry", h.Fleet.PostTelemetry).Methods("POST", "OPTIONS")
	api.HandleFunc("/vehicles/{id}/soc", h.Fleet.GetSoCSeries).Methods("GET", "OPTIONS")
	api.HandleFunc("/vehicles/{id}/soc/chart", h.Fleet.GetSoCChart).Methods("GET", "OPTIONS")
	api.HandleFunc("/vehicles/{id}/soc/chart.png", h.Fleet.GetSoCChartPNG).Methods("GET", "OPTIONS")
	api.HandleFunc("/vehicles/{id}/soc/echarts", h.Fleet.GetSoCECharts).Methods("GET", "OPTIONS")
	api.HandleFunc("/charging-sessions", h.Fleet.ListChargingSessions).Methods("GET", "OPTIONS")
	api.HandleFunc("/alerts", h.Fleet.ListAlerts).Methods("GET", "OPTIONS")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	r.Use(h.Auth.RequireLogin)

	return r
}

// corsMiddleware allows the configured origins on the JSON API.
// Credentials are only allowed for an explicit origin list.
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
	return c.Handler
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "ev-fleet-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
