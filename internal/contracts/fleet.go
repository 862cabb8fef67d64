package contracts

import (
	"fmt"
	"math"
	"time"
)

// VehicleStatus is the operational state of a vehicle
type VehicleStatus string

const (
	VehicleActive   VehicleStatus = "ACTIVE"
	VehicleCharging VehicleStatus = "CHARGING"
	VehicleInactive VehicleStatus = "INACTIVE"
)

// Valid reports whether s is a known status
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleCharging, VehicleInactive:
		return true
	}
	return false
}

// ChargingStatus is the state of a charging session
type ChargingStatus string

const (
	ChargingInProgress ChargingStatus = "CHARGING"
	ChargingCompleted  ChargingStatus = "COMPLETED"
)

// AlertStatus is the state of an alert
type AlertStatus string

const (
	AlertActive   AlertStatus = "ACTIVE"
	AlertResolved AlertStatus = "RESOLVED"
)

// AlertTypeLowSoC is raised by the low state-of-charge sweep
const AlertTypeLowSoC = "Low State of Charge"

// UserAccount is an operator able to log into the dashboard
type UserAccount struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
}

// Vehicle is a fleet vehicle.
// CurrentSoC is filled from the latest telemetry row and is nil when none exists.
type Vehicle struct {
	ID         string        `json:"id"`
	DriverName string        `json:"driver_name"`
	Status     VehicleStatus `json:"status"`
	LastUpdate time.Time     `json:"last_update"`
	CurrentSoC *float64      `json:"current_soc"`
}

// BatteryPack is the traction battery of a vehicle (one per vehicle)
type BatteryPack struct {
	ID          string  `json:"id"`
	VehicleID   string  `json:"vehicle_id"`
	CapacityKWh float64 `json:"capacity_kwh"`
}

// Telemetry is a single reading reported by a vehicle
type Telemetry struct {
	ID          int64     `json:"id"`
	VehicleID   string    `json:"vehicle_id"`
	Timestamp   time.Time `json:"timestamp"`
	SoC         float64   `json:"soc"`
	PackVoltage *float64  `json:"pack_voltage,omitempty"`
	PackCurrent *float64  `json:"pack_current,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Validate checks a telemetry row before it is stored
func (t *Telemetry) Validate() error {
	if t.VehicleID == "" {
		return fmt.Errorf("telemetry: vehicle id is required")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("telemetry: timestamp is required")
	}
	if math.IsNaN(t.SoC) || math.IsInf(t.SoC, 0) {
		return fmt.Errorf("telemetry: soc must be a finite number")
	}
	return nil
}

// ChargingSession is one charge of a vehicle; EndTime and EnergyAddedKWh stay nil while charging
type ChargingSession struct {
	ID             int64          `json:"id"`
	VehicleID      string         `json:"vehicle_id"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	EnergyAddedKWh *float64       `json:"energy_added_kwh,omitempty"`
	ChargingType   string         `json:"charging_type"`
	Status         ChargingStatus `json:"status"`
}

// Duration returns the session length, measured up to now for sessions still charging
func (s *ChargingSession) Duration(now time.Time) time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return now.Sub(s.StartTime)
}

// Trip is a completed or ongoing drive
type Trip struct {
	ID            int64      `json:"id"`
	VehicleID     string     `json:"vehicle_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	DistanceKm    *float64   `json:"distance_km,omitempty"`
	EnergyUsedKWh *float64   `json:"energy_used_kwh,omitempty"`
}

// Efficiency returns kWh per 100 km, or false when the trip lacks data
func (t *Trip) Efficiency() (float64, bool) {
	if t.DistanceKm == nil || t.EnergyUsedKWh == nil || *t.DistanceKm <= 0 {
		return 0, false
	}
	return *t.EnergyUsedKWh / *t.DistanceKm * 100, true
}

// Alert is an operator-facing vehicle alert
type Alert struct {
	ID        int64       `json:"id"`
	VehicleID string      `json:"vehicle_id"`
	Timestamp time.Time   `json:"timestamp"`
	AlertType string      `json:"alert_type"`
	Status    AlertStatus `json:"status"`
}

// FleetSummary holds the dashboard headline numbers
type FleetSummary struct {
	TotalVehicles    int       `json:"total_vehicles"`
	ActiveVehicles   int       `json:"active_vehicles"`
	ChargingVehicles int       `json:"charging_vehicles"`
	AverageSoC       float64   `json:"avg_soc"`
	ActiveAlerts     int       `json:"active_alerts"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// RoundSoC rounds a SoC percentage to one decimal place
func RoundSoC(v float64) float64 {
	return math.Round(v*10) / 10
}
