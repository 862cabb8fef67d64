package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

// DefaultHistoryPoints is the number of readings shown on a vehicle chart
const DefaultHistoryPoints = 20

// recentTrips is the number of trips shown on a vehicle page
const recentTrips = 5

// Store is everything the service reads from
type Store interface {
	contracts.VehicleRepository
	contracts.TelemetryRepository
	contracts.AlertRepository
	contracts.ChargingRepository
	contracts.TripRepository
	contracts.SummaryRepository
}

// Dashboard is the landing page model
type Dashboard struct {
	Summary  *contracts.FleetSummary `json:"summary"`
	Vehicles []*contracts.Vehicle    `json:"vehicles"`
}

// VehicleDetail is the vehicle page model. Pack and Latest are nil when missing.
type VehicleDetail struct {
	Vehicle *contracts.Vehicle     `json:"vehicle"`
	Pack    *contracts.BatteryPack `json:"battery_pack"`
	Latest  *contracts.Telemetry   `json:"latest_telemetry"`
	Series  soc.TimeSeries         `json:"soc_series"`
	Trips   []*contracts.Trip      `json:"trips"`
}

// Service answers the dashboard queries
// ⭐ SSOT: fleet read models are assembled here only
type Service struct {
	store         Store
	cache         *redis.Cache
	historyPoints int
	logger        *logger.Logger
}

// NewService creates a fleet service. cache may be nil.
func NewService(store Store, cache *redis.Cache, historyPoints int, log *logger.Logger) *Service {
	if historyPoints <= 0 {
		historyPoints = DefaultHistoryPoints
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:         store,
		cache:         cache,
		historyPoints: historyPoints,
		logger:        log.WithComponent("fleet"),
	}
}

// Summary returns the fleet summary, served from cache when possible
func (s *Service) Summary(ctx context.Context) (*contracts.FleetSummary, error) {
	if s.cache == nil || !s.cache.Enabled() {
		return s.store.FleetSummary(ctx)
	}

	var summary contracts.FleetSummary
	err := s.cache.GetOrSet(ctx, redis.FleetSummaryKey(), &summary, redis.TTLShort, func() (interface{}, error) {
		return s.store.FleetSummary(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// RefreshSummary recomputes the summary and overwrites the cached copy
func (s *Service) RefreshSummary(ctx context.Context) (*contracts.FleetSummary, error) {
	summary, err := s.store.FleetSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, redis.FleetSummaryKey(), summary, redis.TTLShort); err != nil {
			s.logger.WithError(err).Warn("Failed to cache fleet summary")
		}
	}
	return summary, nil
}

// Dashboard returns the summary plus every vehicle
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.store.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{Summary: summary, Vehicles: vehicles}, nil
}

// Vehicles lists every vehicle with its latest SoC
func (s *Service) Vehicles(ctx context.Context) ([]*contracts.Vehicle, error) {
	return s.store.ListVehicles(ctx)
}

// VehicleDetail assembles the vehicle page. Unknown ids yield ErrNotFound.
func (s *Service) VehicleDetail(ctx context.Context, id string) (*VehicleDetail, error) {
	vehicle, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}

	pack, err := optional(s.store.GetBatteryPack(ctx, id))
	if err != nil {
		return nil, err
	}

	latest, err := optional(s.store.LatestTelemetry(ctx, id))
	if err != nil {
		return nil, err
	}

	recent, err := s.store.RecentTelemetry(ctx, id, s.historyPoints)
	if err != nil {
		return nil, err
	}

	trips, err := s.store.RecentTrips(ctx, id, recentTrips)
	if err != nil {
		return nil, err
	}

	return &VehicleDetail{
		Vehicle: vehicle,
		Pack:    pack,
		Latest:  latest,
		Series:  soc.FromTelemetry(recent),
		Trips:   trips,
	}, nil
}

// SoCSeries returns the chart payload of a vehicle
func (s *Service) SoCSeries(ctx context.Context, id string) (soc.TimeSeries, error) {
	if _, err := s.store.GetVehicle(ctx, id); err != nil {
		return soc.TimeSeries{}, err
	}

	recent, err := s.store.RecentTelemetry(ctx, id, s.historyPoints)
	if err != nil {
		return soc.TimeSeries{}, err
	}
	return soc.FromTelemetry(recent), nil
}

// RecordTelemetry stores a reading for a known vehicle and drops the cached summary
func (s *Service) RecordTelemetry(ctx context.Context, t *contracts.Telemetry) error {
	if _, err := s.store.GetVehicle(ctx, t.VehicleID); err != nil {
		return err
	}
	if err := s.store.InsertTelemetry(ctx, t); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, redis.FleetSummaryKey()); err != nil {
			s.logger.WithError(err).Warn("Failed to invalidate fleet summary")
		}
	}
	return nil
}

// ChargingSessions returns the charging history, newest first
func (s *Service) ChargingSessions(ctx context.Context) ([]*contracts.ChargingSession, error) {
	return s.store.ListChargingSessions(ctx)
}

// Alerts returns every alert, newest first
func (s *Service) Alerts(ctx context.Context) ([]*contracts.Alert, error) {
	return s.store.ListAlerts(ctx)
}

// RaiseLowSoCAlerts creates a low SoC alert for every vehicle whose latest
// reading classifies as low under policy and that has no such alert open.
// It returns the alerts created.
func (s *Service) RaiseLowSoCAlerts(ctx context.Context, policy soc.Policy) ([]*contracts.Alert, error) {
	vehicles, err := s.store.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}

	var raised []*contracts.Alert
	for _, v := range vehicles {
		if v.CurrentSoC == nil || policy.Classify(*v.CurrentSoC) != soc.Low {
			continue
		}

		open, err := s.store.HasActiveAlert(ctx, v.ID, contracts.AlertTypeLowSoC)
		if err != nil {
			return raised, err
		}
		if open {
			continue
		}

		alert := &contracts.Alert{
			VehicleID: v.ID,
			AlertType: contracts.AlertTypeLowSoC,
			Status:    contracts.AlertActive,
		}
		if err := s.store.CreateAlert(ctx, alert); err != nil {
			return raised, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}

		s.logger.WithVehicle(v.ID).WithField("soc", *v.CurrentSoC).Info("Low SoC alert raised")
		raised = append(raised, alert)
	}

	return raised, nil
}

// optional turns ErrNotFound into a nil value
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}
