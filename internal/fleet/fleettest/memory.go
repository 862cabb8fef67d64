// Package fleettest provides an in-memory fleet store for tests.
package fleettest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/fleet"
)

// MemoryStore mirrors fleet.Repository on top of maps
type MemoryStore struct {
	mu sync.Mutex

	users     map[string]*contracts.UserAccount
	vehicles  map[string]*contracts.Vehicle
	packs     map[string]*contracts.BatteryPack
	telemetry map[string][]*contracts.Telemetry
	sessions  []*contracts.ChargingSession
	trips     []*contracts.Trip
	alerts    []*contracts.Alert
	nextID    int64

	// Err, when set, is returned by every read
	Err error
	// SummaryCalls counts FleetSummary invocations
	SummaryCalls int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*contracts.UserAccount),
		vehicles:  make(map[string]*contracts.Vehicle),
		packs:     make(map[string]*contracts.BatteryPack),
		telemetry: make(map[string][]*contracts.Telemetry),
	}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) latest(vehicleID string) *contracts.Telemetry {
	rows := m.telemetry[vehicleID]
	if len(rows) == 0 {
		return nil
	}
	return rows[len(rows)-1]
}

func (m *MemoryStore) withSoC(v *contracts.Vehicle) *contracts.Vehicle {
	cp := *v
	cp.CurrentSoC = nil
	if t := m.latest(v.ID); t != nil {
		value := t.SoC
		cp.CurrentSoC = &value
	}
	return &cp
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, fleet.ErrNotFound)
}

// ListVehicles implements contracts.VehicleRepository
func (m *MemoryStore) ListVehicles(ctx context.Context) ([]*contracts.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	out := make([]*contracts.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		out = append(out, m.withSoC(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetVehicle implements contracts.VehicleRepository
func (m *MemoryStore) GetVehicle(ctx context.Context, id string) (*contracts.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	v, ok := m.vehicles[id]
	if !ok {
		return nil, notFound("vehicle " + id)
	}
	return m.withSoC(v), nil
}

// CreateVehicle adds a vehicle unless it exists
func (m *MemoryStore) CreateVehicle(ctx context.Context, v *contracts.Vehicle) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !v.Status.Valid() {
		return false, fmt.Errorf("invalid vehicle status %q", v.Status)
	}
	if _, ok := m.vehicles[v.ID]; ok {
		return false, nil
	}
	cp := *v
	m.vehicles[v.ID] = &cp
	return true, nil
}

// GetBatteryPack implements contracts.VehicleRepository
func (m *MemoryStore) GetBatteryPack(ctx context.Context, vehicleID string) (*contracts.BatteryPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	p, ok := m.packs[vehicleID]
	if !ok {
		return nil, notFound("battery pack of " + vehicleID)
	}
	cp := *p
	return &cp, nil
}

// CreateBatteryPack stores a pack, ignoring duplicates
func (m *MemoryStore) CreateBatteryPack(ctx context.Context, p *contracts.BatteryPack) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packs[p.VehicleID]; !ok {
		cp := *p
		m.packs[p.VehicleID] = &cp
	}
	return nil
}

// LatestTelemetry implements contracts.TelemetryRepository
func (m *MemoryStore) LatestTelemetry(ctx context.Context, vehicleID string) (*contracts.Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	t := m.latest(vehicleID)
	if t == nil {
		return nil, notFound("telemetry of " + vehicleID)
	}
	cp := *t
	return &cp, nil
}

// RecentTelemetry implements contracts.TelemetryRepository
func (m *MemoryStore) RecentTelemetry(ctx context.Context, vehicleID string, limit int) ([]*contracts.Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	rows := m.telemetry[vehicleID]
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	out := make([]*contracts.Telemetry, len(rows))
	for i, t := range rows {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

// InsertTelemetry implements contracts.TelemetryRepository, keeping rows sorted by time
func (m *MemoryStore) InsertTelemetry(ctx context.Context, t *contracts.Telemetry) error {
	if err := t.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.id()
	cp := *t
	rows := append(m.telemetry[t.VehicleID], &cp)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	m.telemetry[t.VehicleID] = rows

	if v, ok := m.vehicles[t.VehicleID]; ok && t.Timestamp.After(v.LastUpdate) {
		v.LastUpdate = t.Timestamp
	}
	return nil
}

// CountTelemetry returns the number of readings of a vehicle
func (m *MemoryStore) CountTelemetry(ctx context.Context, vehicleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.telemetry[vehicleID]), nil
}

// ListChargingSessions implements contracts.ChargingRepository
func (m *MemoryStore) ListChargingSessions(ctx context.Context) ([]*contracts.ChargingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	out := append([]*contracts.ChargingSession(nil), m.sessions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// CreateChargingSession stores a session
func (m *MemoryStore) CreateChargingSession(ctx context.Context, s *contracts.ChargingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.id()
	cp := *s
	m.sessions = append(m.sessions, &cp)
	return nil
}

// RecentTrips implements contracts.TripRepository
func (m *MemoryStore) RecentTrips(ctx context.Context, vehicleID string, limit int) ([]*contracts.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var out []*contracts.Trip
	for _, t := range m.trips {
		if t.VehicleID == vehicleID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreateTrip stores a trip
func (m *MemoryStore) CreateTrip(ctx context.Context, t *contracts.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t.ID = m.id()
	cp := *t
	m.trips = append(m.trips, &cp)
	return nil
}

// ListAlerts implements contracts.AlertRepository
func (m *MemoryStore) ListAlerts(ctx context.Context) ([]*contracts.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	out := append([]*contracts.Alert(nil), m.alerts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// HasActiveAlert implements contracts.AlertRepository
func (m *MemoryStore) HasActiveAlert(ctx context.Context, vehicleID, alertType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}

	for _, a := range m.alerts {
		if a.VehicleID == vehicleID && a.AlertType == alertType && a.Status == contracts.AlertActive {
			return true, nil
		}
	}
	return false, nil
}

// CreateAlert implements contracts.AlertRepository
func (m *MemoryStore) CreateAlert(ctx context.Context, a *contracts.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Status == "" {
		a.Status = contracts.AlertActive
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	a.ID = m.id()
	cp := *a
	m.alerts = append(m.alerts, &cp)
	return nil
}

// GetUserByName implements contracts.UserRepository
func (m *MemoryStore) GetUserByName(ctx context.Context, username string) (*contracts.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	u, ok := m.users[username]
	if !ok {
		return nil, notFound("user " + username)
	}
	cp := *u
	return &cp, nil
}

// CreateUser stores an account unless the username is taken
func (m *MemoryStore) CreateUser(ctx context.Context, u *contracts.UserAccount) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Username]; ok {
		return false, nil
	}
	u.ID = m.id()
	cp := *u
	m.users[u.Username] = &cp
	return true, nil
}

// FleetSummary implements contracts.SummaryRepository
func (m *MemoryStore) FleetSummary(ctx context.Context) (*contracts.FleetSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryCalls++
	if m.Err != nil {
		return nil, m.Err
	}

	s := &contracts.FleetSummary{GeneratedAt: time.Now().UTC()}
	var sum float64
	var n int
	for _, v := range m.vehicles {
		s.TotalVehicles++
		switch v.Status {
		case contracts.VehicleActive:
			s.ActiveVehicles++
		case contracts.VehicleCharging:
			s.ChargingVehicles++
		}
		if t := m.latest(v.ID); t != nil {
			sum += t.SoC
			n++
		}
	}
	if n > 0 {
		s.AverageSoC = contracts.RoundSoC(sum / float64(n))
	}
	for _, a := range m.alerts {
		if a.Status == contracts.AlertActive {
			s.ActiveAlerts++
		}
	}
	return s, nil
}

// Counts reports how many rows each table holds
func (m *MemoryStore) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	telemetry := 0
	for _, rows := range m.telemetry {
		telemetry += len(rows)
	}
	return map[string]int{
		"users":     len(m.users),
		"vehicles":  len(m.vehicles),
		"packs":     len(m.packs),
		"telemetry": telemetry,
		"sessions":  len(m.sessions),
		"trips":     len(m.trips),
		"alerts":    len(m.alerts),
	}
}

var _ fleet.Store = (*MemoryStore)(nil)
