package cache

import (
	"sync"
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// TelemetryCache keeps the newest reading of every vehicle in memory
// ⭐ SSOT: live telemetry caching happens in this struct only
type TelemetryCache struct {
	mu       sync.RWMutex
	readings map[string]*contracts.Telemetry
	ttl      time.Duration
	now      func() time.Time
	logger   *logger.Logger
}

// NewTelemetryCache creates a cache whose entries go stale after ttl
func NewTelemetryCache(ttl time.Duration, log *logger.Logger) *TelemetryCache {
	if log == nil {
		log = logger.Nop()
	}
	return &TelemetryCache{
		readings: make(map[string]*contracts.Telemetry),
		ttl:      ttl,
		now:      time.Now,
		logger:   log.WithComponent("telemetry_cache"),
	}
}

// Update stores t unless the cache already holds a newer reading for the vehicle
func (c *TelemetryCache) Update(t *contracts.Telemetry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.readings[t.VehicleID]; ok && !t.Timestamp.After(existing.Timestamp) {
		c.logger.WithFields(map[string]interface{}{
			"vehicle_id": t.VehicleID,
			"new_time":   t.Timestamp,
			"old_time":   existing.Timestamp,
		}).Debug("Rejected older telemetry")
		return false
	}

	cp := *t
	c.readings[t.VehicleID] = &cp
	return true
}

// Get returns the cached reading of a vehicle and whether it is still fresh
func (c *TelemetryCache) Get(vehicleID string) (*contracts.Telemetry, bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, ok := c.readings[vehicleID]
	if !ok {
		return nil, false, false
	}
	cp := *t
	return &cp, c.now().Sub(t.Timestamp) <= c.ttl, true
}

// Len returns the number of cached vehicles
func (c *TelemetryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.readings)
}

// CleanStale drops readings older than the TTL and returns how many went
func (c *TelemetryCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for id, t := range c.readings {
		if now.Sub(t.Timestamp) > c.ttl {
			delete(c.readings, id)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale telemetry from cache")
	}
	return count
}

// Stats returns cache statistics
func (c *TelemetryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{TotalCount: len(c.readings)}
	now := c.now()
	for _, t := range c.readings {
		if now.Sub(t.Timestamp) > c.ttl {
			stats.StaleCount++
		}
	}
	stats.FreshCount = stats.TotalCount - stats.StaleCount
	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalCount int `json:"total_count"`
	FreshCount int `json:"fresh_count"`
	StaleCount int `json:"stale_count"`
}
