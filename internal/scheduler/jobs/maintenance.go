package jobs

import (
	"context"

	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime/cache"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// Sweeper drops expired in-memory state and reports how many entries went
type Sweeper interface {
	Sweep() int
}

// CacheCleanupJob drops stale readings from the live telemetry cache and
// sweeps any other registered in-memory stores
type CacheCleanupJob struct {
	cache    *cache.TelemetryCache
	sweepers map[string]Sweeper
	logger   *logger.Logger
}

// NewCacheCleanupJob creates a new cache cleanup job. telemetry may be nil.
func NewCacheCleanupJob(telemetry *cache.TelemetryCache, log *logger.Logger) *CacheCleanupJob {
	return &CacheCleanupJob{
		cache:    telemetry,
		sweepers: make(map[string]Sweeper),
		logger:   log,
	}
}

// WithSweeper registers another store to clean on every run
func (j *CacheCleanupJob) WithSweeper(name string, s Sweeper) *CacheCleanupJob {
	j.sweepers[name] = s
	return j
}

// Name returns the job name
func (j *CacheCleanupJob) Name() string {
	return "cache_cleanup"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *CacheCleanupJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run executes the cache cleanup
func (j *CacheCleanupJob) Run(ctx context.Context) error {
	removed := make(map[string]interface{})
	if j.cache != nil {
		if count := j.cache.CleanStale(); count > 0 {
			removed["telemetry"] = count
		}
	}
	for name, s := range j.sweepers {
		if count := s.Sweep(); count > 0 {
			removed[name] = count
		}
	}

	if len(removed) > 0 {
		j.logger.WithFields(removed).Info("Cache cleanup completed")
	}
	return nil
}
