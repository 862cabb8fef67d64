package fleet

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

//go:embed schema.sql
var schemaSQL string

// Repository is the PostgreSQL fleet store
// ⭐ SSOT: every fleet table is read and written here only
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ contracts.VehicleRepository   = (*Repository)(nil)
	_ contracts.TelemetryRepository = (*Repository)(nil)
	_ contracts.AlertRepository     = (*Repository)(nil)
	_ contracts.ChargingRepository  = (*Repository)(nil)
	_ contracts.TripRepository      = (*Repository)(nil)
	_ contracts.SummaryRepository   = (*Repository)(nil)
	_ contracts.UserRepository      = (*Repository)(nil)
)

// NewRepository creates a new fleet repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Schema returns the DDL applied by Migrate
func Schema() string {
	return schemaSQL
}

// Migrate creates missing tables and indexes
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// notFound maps pgx.ErrNoRows to ErrNotFound, keeping both in the chain
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w (%w)", what, ErrNotFound, err)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

type scanner interface {
	Scan(dest ...any) error
}

// ============================================================================
// Vehicles
// ============================================================================

const vehicleColumns = `
	v.id, COALESCE(v.driver_name, ''), v.status, v.last_update,
	(SELECT t.soc FROM telemetry t WHERE t.vehicle_id = v.id ORDER BY t.timestamp DESC LIMIT 1)
`

func scanVehicle(row scanner) (*contracts.Vehicle, error) {
	var v contracts.Vehicle
	var status string
	if err := row.Scan(&v.ID, &v.DriverName, &status, &v.LastUpdate, &v.CurrentSoC); err != nil {
		return nil, err
	}
	v.Status = contracts.VehicleStatus(status)
	return &v, nil
}

// ListVehicles returns every vehicle with its latest SoC
func (r *Repository) ListVehicles(ctx context.Context) ([]*contracts.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicle v ORDER BY v.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*contracts.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

// GetVehicle returns one vehicle or ErrNotFound
func (r *Repository) GetVehicle(ctx context.Context, id string) (*contracts.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicle v WHERE v.id = $1`

	v, err := scanVehicle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "vehicle "+id)
	}
	return v, nil
}

// CreateVehicle inserts a vehicle unless it exists. It reports whether a row was added.
func (r *Repository) CreateVehicle(ctx context.Context, v *contracts.Vehicle) (bool, error) {
	if !v.Status.Valid() {
		return false, fmt.Errorf("invalid vehicle status %q", v.Status)
	}

	lastUpdate := v.LastUpdate
	if lastUpdate.IsZero() {
		lastUpdate = time.Now().UTC()
	}

	query := `
		INSERT INTO vehicle (id, driver_name, status, last_update)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, v.ID, v.DriverName, string(v.Status), lastUpdate)
	if err != nil {
		return false, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetBatteryPack returns the pack of a vehicle or ErrNotFound
func (r *Repository) GetBatteryPack(ctx context.Context, vehicleID string) (*contracts.BatteryPack, error) {
	query := `SELECT id, vehicle_id, capacity_kwh FROM battery_pack WHERE vehicle_id = $1`

	var p contracts.BatteryPack
	err := r.pool.QueryRow(ctx, query, vehicleID).Scan(&p.ID, &p.VehicleID, &p.CapacityKWh)
	if err != nil {
		return nil, notFound(err, "battery pack of "+vehicleID)
	}
	return &p, nil
}

// CreateBatteryPack inserts a pack, ignoring duplicates
func (r *Repository) CreateBatteryPack(ctx context.Context, p *contracts.BatteryPack) error {
	query := `
		INSERT INTO battery_pack (id, vehicle_id, capacity_kwh)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.pool.Exec(ctx, query, p.ID, p.VehicleID, p.CapacityKWh); err != nil {
		return fmt.Errorf("failed to create battery pack: %w", err)
	}
	return nil
}

// ============================================================================
// Telemetry
// ============================================================================

const telemetryColumns = `id, vehicle_id, timestamp, soc, pack_voltage, pack_current, temperature`

func scanTelemetry(row scanner) (*contracts.Telemetry, error) {
	var t contracts.Telemetry
	err := row.Scan(&t.ID, &t.VehicleID, &t.Timestamp, &t.SoC, &t.PackVoltage, &t.PackCurrent, &t.Temperature)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LatestTelemetry returns the newest reading of a vehicle or ErrNotFound
func (r *Repository) LatestTelemetry(ctx context.Context, vehicleID string) (*contracts.Telemetry, error) {
	query := `
		SELECT ` + telemetryColumns + `
		FROM telemetry
		WHERE vehicle_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`

	t, err := scanTelemetry(r.pool.QueryRow(ctx, query, vehicleID))
	if err != nil {
		return nil, notFound(err, "telemetry of "+vehicleID)
	}
	return t, nil
}

// RecentTelemetry returns the newest limit readings in chronological order
func (r *Repository) RecentTelemetry(ctx context.Context, vehicleID string, limit int) ([]*contracts.Telemetry, error) {
	query := `
		SELECT ` + telemetryColumns + ` FROM (
			SELECT ` + telemetryColumns + `
			FROM telemetry
			WHERE vehicle_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var out []*contracts.Telemetry
	for rows.Next() {
		t, err := scanTelemetry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan telemetry: %w", err)
		}
		out = append(out, t)
	}

	return out, rows.Err()
}

// InsertTelemetry stores a reading and bumps the vehicle's last update
func (r *Repository) InsertTelemetry(ctx context.Context, t *contracts.Telemetry) error {
	if err := t.Validate(); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO telemetry (vehicle_id, timestamp, soc, pack_voltage, pack_current, temperature)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		t.VehicleID, t.Timestamp, t.SoC, t.PackVoltage, t.PackCurrent, t.Temperature,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert telemetry: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE vehicle SET last_update = GREATEST(last_update, $2) WHERE id = $1`,
		t.VehicleID, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to update vehicle timestamp: %w", err)
	}

	return tx.Commit(ctx)
}

// CountTelemetry returns the number of readings stored for a vehicle
func (r *Repository) CountTelemetry(ctx context.Context, vehicleID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM telemetry WHERE vehicle_id = $1`, vehicleID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count telemetry: %w", err)
	}
	return n, nil
}

// ============================================================================
// Charging sessions and trips
// ============================================================================

// ListChargingSessions returns every session, newest first
func (r *Repository) ListChargingSessions(ctx context.Context) ([]*contracts.ChargingSession, error) {
	query := `
		SELECT id, vehicle_id, start_time, end_time, energy_added_kwh,
		       COALESCE(charging_type, ''), status
		FROM charging_session
		ORDER BY start_time DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list charging sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*contracts.ChargingSession
	for rows.Next() {
		var s contracts.ChargingSession
		var status string
		if err := rows.Scan(&s.ID, &s.VehicleID, &s.StartTime, &s.EndTime, &s.EnergyAddedKWh, &s.ChargingType, &status); err != nil {
			return nil, fmt.Errorf("failed to scan charging session: %w", err)
		}
		s.Status = contracts.ChargingStatus(status)
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// CreateChargingSession inserts a session
func (r *Repository) CreateChargingSession(ctx context.Context, s *contracts.ChargingSession) error {
	query := `
		INSERT INTO charging_session (vehicle_id, start_time, end_time, energy_added_kwh, charging_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		s.VehicleID, s.StartTime, s.EndTime, s.EnergyAddedKWh, s.ChargingType, string(s.Status),
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create charging session: %w", err)
	}
	return nil
}

// RecentTrips returns the newest trips of a vehicle
func (r *Repository) RecentTrips(ctx context.Context, vehicleID string, limit int) ([]*contracts.Trip, error) {
	query := `
		SELECT id, vehicle_id, start_time, end_time, distance_km, energy_used_kwh
		FROM trip
		WHERE vehicle_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*contracts.Trip
	for rows.Next() {
		var t contracts.Trip
		if err := rows.Scan(&t.ID, &t.VehicleID, &t.StartTime, &t.EndTime, &t.DistanceKm, &t.EnergyUsedKWh); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, &t)
	}

	return trips, rows.Err()
}

// CreateTrip inserts a trip
func (r *Repository) CreateTrip(ctx context.Context, t *contracts.Trip) error {
	query := `
		INSERT INTO trip (vehicle_id, start_time, end_time, distance_km, energy_used_kwh)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		t.VehicleID, t.StartTime, t.EndTime, t.DistanceKm, t.EnergyUsedKWh,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// ============================================================================
// Alerts
// ============================================================================

// ListAlerts returns every alert, newest first
func (r *Repository) ListAlerts(ctx context.Context) ([]*contracts.Alert, error) {
	query := `
		SELECT id, vehicle_id, timestamp, alert_type, status
		FROM alert
		ORDER BY timestamp DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*contracts.Alert
	for rows.Next() {
		var a contracts.Alert
		var status string
		if err := rows.Scan(&a.ID, &a.VehicleID, &a.Timestamp, &a.AlertType, &status); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Status = contracts.AlertStatus(status)
		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

// HasActiveAlert reports whether the vehicle has an ACTIVE alert of alertType
func (r *Repository) HasActiveAlert(ctx context.Context, vehicleID, alertType string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alert
			WHERE vehicle_id = $1 AND alert_type = $2 AND status = 'ACTIVE'
		)
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, vehicleID, alertType).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check alerts: %w", err)
	}
	return exists, nil
}

// CreateAlert inserts an alert, defaulting to ACTIVE and now
func (r *Repository) CreateAlert(ctx context.Context, a *contracts.Alert) error {
	if a.Status == "" {
		a.Status = contracts.AlertActive
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO alert (vehicle_id, timestamp, alert_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query, a.VehicleID, a.Timestamp, a.AlertType, string(a.Status)).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ============================================================================
// Users and summary
// ============================================================================

// GetUserByName returns an account or ErrNotFound
func (r *Repository) GetUserByName(ctx context.Context, username string) (*contracts.UserAccount, error) {
	query := `SELECT id, username, password_hash, is_admin FROM user_account WHERE username = $1`

	var u contracts.UserAccount
	err := r.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin)
	if err != nil {
		return nil, notFound(err, "user "+username)
	}
	return &u, nil
}

// CreateUser inserts an account unless the username is taken
func (r *Repository) CreateUser(ctx context.Context, u *contracts.UserAccount) (bool, error) {
	query := `
		INSERT INTO user_account (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query, u.Username, u.PasswordHash, u.IsAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// FleetSummary computes the dashboard headline numbers.
// The average SoC uses each vehicle's latest reading only.
func (r *Repository) FleetSummary(ctx context.Context) (*contracts.FleetSummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM vehicle),
			(SELECT COUNT(*) FROM vehicle WHERE status = 'ACTIVE'),
			(SELECT COUNT(*) FROM vehicle WHERE status = 'CHARGING'),
			(SELECT AVG(t.soc)
			   FROM telemetry t
			   JOIN (SELECT vehicle_id, MAX(timestamp) AS max_time
			           FROM telemetry GROUP BY vehicle_id) latest
			     ON t.vehicle_id = latest.vehicle_id AND t.timestamp = latest.max_time),
			(SELECT COUNT(*) FROM alert WHERE status = 'ACTIVE')
	`

	var s contracts.FleetSummary
	var avg *float64
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalVehicles, &s.ActiveVehicles, &s.ChargingVehicles, &avg, &s.ActiveAlerts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute fleet summary: %w", err)
	}

	if avg != nil {
		s.AverageSoC = contracts.RoundSoC(*avg)
	}
	s.GeneratedAt = time.Now().UTC()

	return &s, nil
}
