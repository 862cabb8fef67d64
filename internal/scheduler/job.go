package scheduler

import (
	"context"
	"time"
)

// Job is a background task run on a cron schedule
// ⭐ SSOT: the job contract is defined here only
type Job interface {
	// Name returns the job name, unique within a scheduler
	Name() string

	// Run executes the job once. ctx carries the per-attempt timeout.
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds first
	// Examples: "*/30 * * * * *" (every 30 seconds)
	//           "@every 1m", "@hourly"
	Schedule() string
}

// JobResult is the outcome of one run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory holds the most recent results of one job, oldest first.
// The scheduler guards it; callers get copies from Snapshot.
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest past maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	if len(h.Results) == maxHistory {
		copy(h.Results, h.Results[1:])
		h.Results[len(h.Results)-1] = result
		return
	}
	h.Results = append(h.Results, result)
}

// Snapshot returns an independent copy
func (h *JobHistory) Snapshot() *JobHistory {
	return &JobHistory{Results: append([]JobResult(nil), h.Results...)}
}

// GetLatestResults returns up to n results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the share of successful runs (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-len(h.GetFailedResults())) / float64(len(h.Results))
}

// FailureStreak counts the failed runs since the last success
func (h *JobHistory) FailureStreak() int {
	streak := 0
	for i := len(h.Results) - 1; i >= 0 && !h.Results[i].Success; i-- {
		streak++
	}
	return streak
}
