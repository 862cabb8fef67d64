package jobs

import (
	"context"

	"github.com/Jobin06/EV-Fleet-MVP/internal/contracts"
	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/internal/soc"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

// SummaryRefresher recomputes and caches the fleet summary
type SummaryRefresher interface {
	RefreshSummary(ctx context.Context) (*contracts.FleetSummary, error)
}

// LowSoCRaiser raises alerts for vehicles running low
type LowSoCRaiser interface {
	RaiseLowSoCAlerts(ctx context.Context, policy soc.Policy) ([]*contracts.Alert, error)
}

// Publisher receives realtime events
type Publisher interface {
	Publish(ev realtime.Event)
}

// FleetSummaryJob refreshes the cached summary and pushes it to dashboards
type FleetSummaryJob struct {
	fleet     SummaryRefresher
	publisher Publisher
	logger    *logger.Logger
}

// NewFleetSummaryJob creates a new fleet summary job. publisher may be nil.
func NewFleetSummaryJob(fleet SummaryRefresher, publisher Publisher, log *logger.Logger) *FleetSummaryJob {
	return &FleetSummaryJob{
		fleet:     fleet,
		publisher: publisher,
		logger:    log,
	}
}

// Name returns the job name
func (j *FleetSummaryJob) Name() string {
	return "fleet_summary"
}

// Schedule returns the cron schedule (every 30 seconds)
func (j *FleetSummaryJob) Schedule() string {
	return "*/30 * * * * *"
}

// Run executes the summary refresh
func (j *FleetSummaryJob) Run(ctx context.Context) error {
	summary, err := j.fleet.RefreshSummary(ctx)
	if err != nil {
		return err
	}

	if j.publisher != nil {
		j.publisher.Publish(realtime.SummaryEvent(summary))
	}

	j.logger.WithFields(map[string]interface{}{
		"vehicles": summary.TotalVehicles,
		"avg_soc":  summary.AverageSoC,
	}).Debug("Fleet summary refreshed")

	return nil
}

// LowSoCAlertJob opens a "Low State of Charge" alert for every vehicle whose
// latest reading falls in the low tier
type LowSoCAlertJob struct {
	fleet     LowSoCRaiser
	policy    soc.Policy
	publisher Publisher
	logger    *logger.Logger
}

// NewLowSoCAlertJob creates a new low SoC alert job. publisher may be nil.
func NewLowSoCAlertJob(fleet LowSoCRaiser, policy soc.Policy, publisher Publisher, log *logger.Logger) *LowSoCAlertJob {
	return &LowSoCAlertJob{
		fleet:     fleet,
		policy:    policy,
		publisher: publisher,
		logger:    log,
	}
}

// Name returns the job name
func (j *LowSoCAlertJob) Name() string {
	return "low_soc_alert"
}

// Schedule returns the cron schedule (every minute)
func (j *LowSoCAlertJob) Schedule() string {
	return "0 * * * * *"
}

// Run executes the low SoC sweep
func (j *LowSoCAlertJob) Run(ctx context.Context) error {
	raised, err := j.fleet.RaiseLowSoCAlerts(ctx, j.policy)

	if j.publisher != nil {
		for _, a := range raised {
			j.publisher.Publish(realtime.AlertEvent(a))
		}
	}
	if err != nil {
		return err
	}

	if len(raised) > 0 {
		j.logger.WithField("raised", len(raised)).Info("Low SoC sweep completed")
	}
	return nil
}
