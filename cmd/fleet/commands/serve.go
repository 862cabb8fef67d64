package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jobin06/EV-Fleet-MVP/internal/api"
	"github.com/Jobin06/EV-Fleet-MVP/internal/api/handlers"
	"github.com/Jobin06/EV-Fleet-MVP/internal/auth"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime/cache"
	"github.com/Jobin06/EV-Fleet-MVP/internal/seed"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the fleet dashboard HTTP server.

This command:
- serves the HTML dashboard and the JSON API
- streams fleet summaries on /ws/fleet
- runs the fleet_summary and low_soc_alert jobs

Endpoints:
  GET  /health
  GET  /dashboard, /vehicle/{id}, /charging_history, /alerts
  GET  /api/fleet/summary
  GET  /api/vehicles, /api/vehicles/{id}
  GET  /api/vehicles/{id}/soc[/chart|/chart.png|/echarts]
  POST /api/vehicles/{id}/telemetry
  GET  /api/charging-sessions, /api/alerts
  GET  /ws/fleet

Example:
  go run ./cmd/fleet serve
  go run ./cmd/fleet serve --port 8080 --migrate --seed`,
	RunE: runServe,
}

// liveTelemetryTTL is how long a streamed reading counts as current
const liveTelemetryTTL = 15 * time.Minute

var (
	servePort        string
	serveMigrate     bool
	serveSeed        bool
	serveNoScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port (overrides PORT)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the schema before serving")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "insert sample data before serving")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not run background jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}
	log := a.log

	if serveMigrate {
		if err := a.repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("Schema applied")
	}
	if serveSeed {
		res, err := seed.New(a.repo, log).Run(ctx)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		log.WithFields(map[string]interface{}{
			"vehicles":  res.Vehicles,
			"telemetry": res.Telemetry,
		}).Info("Sample data seeded")
	}

	// Auth
	sessions := auth.NewSessionStore(redis.NewCache(a.redis, "fleet"))
	authSvc := auth.NewService(
		a.repo,
		sessions,
		auth.NewLoginLimiter(a.redis, a.cfg.Session.LoginAttempts, a.cfg.Session.LoginWindow),
		a.cfg.Session.TTL,
		log,
	)

	// Pages and handlers
	pages, err := handlers.LoadTemplates(log)
	if err != nil {
		return err
	}
	presenter := soc.NewPresenter(a.policy, log)
	hub := realtime.NewHub(realtime.DefaultBuffer, log).AllowOrigins(a.cfg.AllowedOrigins)
	defer hub.Close()
	latest := cache.NewTelemetryCache(liveTelemetryTTL, log)

	proxies, err := handlers.ParseTrustedProxies(a.cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	router := api.NewRouter(api.Handlers{
		Auth:  handlers.NewAuthHandler(authSvc, pages, a.cfg.Session.CookieName, a.cfg.Session.SecureCookie, log).WithTrustedProxies(proxies),
		Pages: handlers.NewPageHandler(a.fleet, presenter, pages, log),
		Fleet: handlers.NewFleetHandler(a.fleet, presenter, log).WithLive(hub, latest),
		Hub:   hub,
	}, a.cfg.AllowedOrigins, log)

	// Background jobs
	if !serveNoScheduler {
		sched, err := a.scheduler(hub, latest, authSvc)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.New(a.cfg, log, router)
	server.OnShutdown(hub.Close)
	if err := server.Listen(); err != nil {
		return err
	}

	// Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://%s\n", server.Addr())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
