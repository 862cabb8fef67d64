package contracts

import (
	"context"
)

// ⭐ SSOT: repository interfaces are defined here only

// VehicleRepository reads vehicles and their packs
type VehicleRepository interface {
	ListVehicles(ctx context.Context) ([]*Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*Vehicle, error)
	GetBatteryPack(ctx context.Context, vehicleID string) (*BatteryPack, error)
}

// TelemetryRepository reads and writes telemetry
type TelemetryRepository interface {
	LatestTelemetry(ctx context.Context, vehicleID string) (*Telemetry, error)
	// RecentTelemetry returns at most limit rows in chronological order
	RecentTelemetry(ctx context.Context, vehicleID string, limit int) ([]*Telemetry, error)
	InsertTelemetry(ctx context.Context, t *Telemetry) error
}

// AlertRepository reads and raises alerts
type AlertRepository interface {
	ListAlerts(ctx context.Context) ([]*Alert, error)
	HasActiveAlert(ctx context.Context, vehicleID, alertType string) (bool, error)
	CreateAlert(ctx context.Context, a *Alert) error
}

// ChargingRepository reads charging history
type ChargingRepository interface {
	ListChargingSessions(ctx context.Context) ([]*ChargingSession, error)
}

// TripRepository reads trips
type TripRepository interface {
	RecentTrips(ctx context.Context, vehicleID string, limit int) ([]*Trip, error)
}

// SummaryRepository computes the fleet summary
type SummaryRepository interface {
	FleetSummary(ctx context.Context) (*FleetSummary, error)
}

// UserRepository looks up operator accounts
type UserRepository interface {
	GetUserByName(ctx context.Context, username string) (*UserAccount, error)
}
