// Package seed loads the demo fleet used by the dashboard.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

const (
	// TelemetryPoints is the number of readings generated per vehicle
	TelemetryPoints = 20
	// TelemetryInterval separates consecutive readings
	TelemetryInterval = 5 * time.Minute
)

// Store is the write side the seeder needs
type Store interface {
	CreateUser(ctx context.Context, u *contracts.UserAccount) (bool, error)
	CreateVehicle(ctx context.Context, v *contracts.Vehicle) (bool, error)
	CreateBatteryPack(ctx context.Context, p *contracts.BatteryPack) error
	CountTelemetry(ctx context.Context, vehicleID string) (int, error)
	InsertTelemetry(ctx context.Context, t *contracts.Telemetry) error
	CreateChargingSession(ctx context.Context, s *contracts.ChargingSession) error
	CreateTrip(ctx context.Context, t *contracts.Trip) error
	CreateAlert(ctx context.Context, a *contracts.Alert) error
}

// VehicleSpec describes one demo vehicle
type VehicleSpec struct {
	ID     string
	Driver string
	Status contracts.VehicleStatus
}

// DemoFleet is the default set of vehicles
var DemoFleet = []VehicleSpec{
	{ID: "EV-1001", Driver: "Alice Smith", Status: contracts.VehicleActive},
	{ID: "EV-1002", Driver: "Bob Jones", Status: contracts.VehicleCharging},
	{ID: "EV-1003", Driver: "Charlie Brown", Status: contracts.VehicleInactive},
}

var (
	packCapacities = []float64{60, 75, 100}
	chargingTypes  = []string{"Level 2", "DCFC", "Level 1"}
)

// Result counts what a run inserted
type Result struct {
	Users     int `json:"users"`
	Vehicles  int `json:"vehicles"`
	Telemetry int `json:"telemetry"`
	Sessions  int `json:"sessions"`
	Trips     int `json:"trips"`
	Alerts    int `json:"alerts"`
}

// Seeder fills an empty store. Running it again only adds what is missing.
type Seeder struct {
	store  Store
	rng    *rand.Rand
	now    func() time.Time
	fleet  []VehicleSpec
	logger *logger.Logger
}

// Option customizes a Seeder
type Option func(*Seeder)

// WithRand sets the random source, for reproducible data
func WithRand(rng *rand.Rand) Option {
	return func(s *Seeder) { s.rng = rng }
}

// WithClock sets the reference time of generated rows
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

// WithFleet replaces the demo vehicles
func WithFleet(fleet []VehicleSpec) Option {
	return func(s *Seeder) { s.fleet = fleet }
}

// New creates a seeder
func New(store Store, log *logger.Logger, options ...Option) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	s := &Seeder{
		store:  store,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    func() time.Time { return time.Now().UTC() },
		fleet:  DemoFleet,
		logger: log.WithComponent("seed"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Seeder) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Run inserts the admin account and the demo fleet
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	now := s.now()

	s.logger.Info("Starting seed")

	created, err := s.store.CreateUser(ctx, &contracts.UserAccount{Username: "admin", PasswordHash: "admin", IsAdmin: true})
	if err != nil {
		return res, err
	}
	if created {
		res.Users++
	}

	var added []VehicleSpec
	for _, spec := range s.fleet {
		created, err := s.store.CreateVehicle(ctx, &contracts.Vehicle{
			ID:         spec.ID,
			DriverName: spec.Driver,
			Status:     spec.Status,
			LastUpdate: now,
		})
		if err != nil {
			return res, fmt.Errorf("vehicle %s: %w", spec.ID, err)
		}
		if !created {
			continue
		}

		pack := &contracts.BatteryPack{
			ID:          packID(spec.ID),
			VehicleID:   spec.ID,
			CapacityKWh: packCapacities[s.rng.Intn(len(packCapacities))],
		}
		if err := s.store.CreateBatteryPack(ctx, pack); err != nil {
			return res, fmt.Errorf("vehicle %s: %w", spec.ID, err)
		}

		res.Vehicles++
		added = append(added, spec)
	}
	s.logger.WithField("vehicles", res.Vehicles).Info("Vehicles and packs added")

	for _, spec := range s.fleet {
		n, err := s.seedTelemetry(ctx, spec, now)
		if err != nil {
			return res, fmt.Errorf("vehicle %s: %w", spec.ID, err)
		}
		res.Telemetry += n
	}

	for _, spec := range added {
		sessions, trips, err := s.seedHistory(ctx, spec, now)
		if err != nil {
			return res, fmt.Errorf("vehicle %s: %w", spec.ID, err)
		}
		res.Sessions += sessions
		res.Trips += trips
	}

	// Alerts belong to the first demo vehicle and only on its first insert.
	if len(added) > 0 && len(s.fleet) > 0 && added[0].ID == s.fleet[0].ID {
		n, err := s.seedAlerts(ctx, added[0].ID, now)
		if err != nil {
			return res, err
		}
		res.Alerts += n
	}

	s.logger.WithFields(map[string]interface{}{
		"users":     res.Users,
		"vehicles":  res.Vehicles,
		"telemetry": res.Telemetry,
		"sessions":  res.Sessions,
		"trips":     res.Trips,
		"alerts":    res.Alerts,
	}).Info("Seed data successfully added")

	return res, nil
}

// packID derives BP-<suffix> from EV-<suffix>
func packID(vehicleID string) string {
	if len(vehicleID) > 3 {
		return "BP-" + vehicleID[3:]
	}
	return "BP-" + vehicleID
}

func clampSoC(v float64) float64 {
	return math.Min(math.Max(v, 0), 100)
}

// seedTelemetry writes a drain (or charge) curve for vehicles without readings
func (s *Seeder) seedTelemetry(ctx context.Context, spec VehicleSpec, now time.Time) (int, error) {
	existing, err := s.store.CountTelemetry(ctx, spec.ID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	charging := spec.Status == contracts.VehicleCharging
	baseSoC := s.uniform(20, 90)
	if charging {
		baseSoC = 40
	}

	for i := 0; i < TelemetryPoints; i++ {
		var variance float64
		if charging {
			variance = float64(i) * s.uniform(1, 3)
		} else {
			variance = -float64(i) * s.uniform(0.5, 4)
		}

		var current float64
		switch spec.Status {
		case contracts.VehicleActive:
			current = s.uniform(5, 50)
		case contracts.VehicleCharging:
			current = s.uniform(-100, -50)
		}

		voltage := 350 + s.uniform(-10, 10)
		temperature := 25 + s.uniform(-5, 10)

		t := &contracts.Telemetry{
			VehicleID:   spec.ID,
			Timestamp:   now.Add(-time.Duration(TelemetryPoints-i) * TelemetryInterval),
			SoC:         clampSoC(baseSoC + variance),
			PackVoltage: &voltage,
			PackCurrent: &current,
			Temperature: &temperature,
		}
		if err := s.store.InsertTelemetry(ctx, t); err != nil {
			return i, err
		}
	}

	return TelemetryPoints, nil
}

// seedHistory writes past charging sessions and trips
func (s *Seeder) seedHistory(ctx context.Context, spec VehicleSpec, now time.Time) (int, int, error) {
	sessions, trips := 0, 0

	if s.rng.Intn(2) == 0 {
		start := now.Add(-24 * time.Hour)
		end := start.Add(2 * time.Hour)
		energy := s.uniform(10, 40)
		err := s.store.CreateChargingSession(ctx, &contracts.ChargingSession{
			VehicleID:      spec.ID,
			StartTime:      start,
			EndTime:        &end,
			EnergyAddedKWh: &energy,
			ChargingType:   chargingTypes[s.rng.Intn(len(chargingTypes))],
			Status:         contracts.ChargingCompleted,
		})
		if err != nil {
			return sessions, trips, err
		}
		sessions++
	}

	if spec.Status == contracts.VehicleCharging {
		err := s.store.CreateChargingSession(ctx, &contracts.ChargingSession{
			VehicleID:    spec.ID,
			StartTime:    now.Add(-time.Hour),
			ChargingType: "DCFC",
			Status:       contracts.ChargingInProgress,
		})
		if err != nil {
			return sessions, trips, err
		}
		sessions++
	}

	if spec.Status == contracts.VehicleActive {
		start := now.Add(-3 * time.Hour)
		end := start.Add(90 * time.Minute)
		distance := s.uniform(40, 120)
		energy := distance * s.uniform(0.15, 0.22)
		err := s.store.CreateTrip(ctx, &contracts.Trip{
			VehicleID:     spec.ID,
			StartTime:     start,
			EndTime:       &end,
			DistanceKm:    &distance,
			EnergyUsedKWh: &energy,
		})
		if err != nil {
			return sessions, trips, err
		}
		trips++
	}

	return sessions, trips, nil
}

func (s *Seeder) seedAlerts(ctx context.Context, vehicleID string, now time.Time) (int, error) {
	alerts := []*contracts.Alert{
		{VehicleID: vehicleID, Timestamp: now.Add(-10 * time.Minute), AlertType: "Low Tire Pressure", Status: contracts.AlertActive},
		{VehicleID: vehicleID, Timestamp: now.Add(-48 * time.Hour), AlertType: "Battery Temperature High", Status: contracts.AlertResolved},
	}

	for i, a := range alerts {
		if err := s.store.CreateAlert(ctx, a); err != nil {
			return i, fmt.Errorf("failed to seed alert: %w", err)
		}
	}
	return len(alerts), nil
}
