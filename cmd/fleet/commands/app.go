package commands

import (
	"context"
	"fmt"

	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime/cache"
	"github.com/Jobin06/EV-Fleet-MVP/internal/scheduler"
	"github.com/Jobin06/EV-Fleet-MVP/internal/scheduler/jobs"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/config"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/database"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

// app holds the dependencies shared by the commands that talk to the store
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	redis  *redis.Client
	repo   *fleet.Repository
	fleet  *fleet.Service
	policy soc.Policy
}

// newApp loads config and connects to PostgreSQL and Redis
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Chart policy
	policy, err := soc.DefaultPolicy.WithThresholds(cfg.Chart.LowThreshold, cfg.Chart.HighThreshold)
	if err != nil {
		return nil, fmt.Errorf("chart policy: %w", err)
	}

	// 4. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 5. Connect to redis (disabled client when REDIS_ENABLED=false)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 6. Fleet store and service
	repo := fleet.NewRepository(db.Pool)
	svc := fleet.NewService(repo, redis.NewCache(rdb, "fleet"), cfg.Chart.HistoryPoints, log)

	return &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  rdb,
		repo:   repo,
		fleet:  svc,
		policy: policy,
	}, nil
}

// scheduler registers the fleet jobs. publisher, latest and logins may be nil.
func (a *app) scheduler(publisher jobs.Publisher, latest *cache.TelemetryCache, logins jobs.Sweeper) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	registered := []scheduler.Job{
		jobs.NewFleetSummaryJob(a.fleet, publisher, a.log),
		jobs.NewLowSoCAlertJob(a.fleet, a.policy, publisher, a.log),
	}
	if latest != nil || logins != nil {
		cleanup := jobs.NewCacheCleanupJob(latest, a.log)
		if logins != nil {
			cleanup.WithSweeper("logins", logins)
		}
		registered = append(registered, cleanup)
	}

	for _, job := range registered {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}
	return sched, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
