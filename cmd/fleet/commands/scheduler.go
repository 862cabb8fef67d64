package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jobin06/EV-Fleet-MVP/internal/realtime"
	"github.com/Jobin06/EV-Fleet-MVP/internal/scheduler"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage background jobs",
	Long: `Start the scheduler or run its jobs by hand.

Subcommands:
  start   - run the scheduler until interrupted
  list    - list registered jobs
  run     - run one job now and wait for it

Example:
  go run ./cmd/fleet scheduler start
  go run ./cmd/fleet scheduler list
  go run ./cmd/fleet scheduler run low_soc_alert`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Start the scheduler and schedule every registered job.

Registered jobs:
- fleet_summary: every 30 seconds (refresh the cached fleet summary)
- low_soc_alert: every minute (raise Low State of Charge alerts)

The scheduler stops on Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	hub := realtime.NewHub(realtime.DefaultBuffer, a.log)
	defer hub.Close()

	sched, err := a.scheduler(hub, nil, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s\n", jobName)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	printStats(out, sched.GetJobStats())
	return nil
}

func printStats(out io.Writer, stats map[string]scheduler.JobStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "\nJob Statistics:")
	for _, name := range names {
		stat := stats[name]
		fmt.Fprintf(out, "📊 %s\n", name)
		PrintKeyValue(out, "Schedule", stat.Schedule, 12)
		PrintKeyValue(out, "Total Runs", stat.TotalRuns, 12)
		PrintKeyValue(out, "Success", fmt.Sprintf("%d (%.1f%%)", stat.SuccessCount, stat.SuccessRate*100), 12)
		PrintKeyValue(out, "Failures", stat.FailureCount, 12)
		if stat.Streak > 0 {
			PrintKeyValue(out, "Streak", fmt.Sprintf("%d failed in a row", stat.Streak), 12)
		}
		if stat.LastRun != nil {
			PrintKeyValue(out, "Last Run", stat.LastRun.Format("2006-01-02 15:04:05"), 12)
		}
	}
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.scheduler(nil, nil, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	widths := []int{16, 16}
	PrintTableHeader(out, []string{"JOB", "SCHEDULE"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		PrintTableRow(out, []string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.scheduler(nil, nil, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running job: %s\n", jobName)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := sched.RunJobNow(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("job %s failed after %v: %s", jobName, result.Duration, result.Error)
	}

	PrintSuccess(out, fmt.Sprintf("Job %s completed in %v", jobName, result.Duration))
	return nil
}
