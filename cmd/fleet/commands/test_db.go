package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/database"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/redis"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "Test the PostgreSQL and Redis connections",
	Long: `Test the database connection and show pool statistics.

This command:
- loads DATABASE_URL from config
- connects and pings PostgreSQL
- runs a health check and prints the pool statistics
- pings Redis when REDIS_ENABLED=true

Example:
  go run ./cmd/fleet test-db
  go run ./cmd/fleet test-db --env production`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	PrintHeader(out, "Database Connection Test")

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	PrintSuccess(out, fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue(out, "Database URL", maskPassword(cfg.Database.URL), 12)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Create database connection
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess(out, "Database connection established")

	// Get health status
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	PrintSuccess(out, "Health Check Results:")
	PrintKeyValue(out, "Healthy", status.Healthy, 20)
	PrintKeyValue(out, "Response Time", status.ResponseTime, 20)
	PrintKeyValue(out, "Max Connections", status.Stats.MaxConns, 20)
	PrintKeyValue(out, "Total Connections", status.Stats.TotalConns, 20)
	PrintKeyValue(out, "Acquired Connections", status.Stats.AcquiredConns, 20)
	PrintKeyValue(out, "Idle Connections", status.Stats.IdleConns, 20)
	PrintKeyValue(out, "Acquire Count", status.Stats.AcquireCount, 20)

	// Redis is optional
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to redis: %w", err)
	}
	defer rdb.Close()
	if rdb.Enabled() {
		PrintSuccess(out, "Redis ping successful")
	} else {
		PrintWarning(out, "Redis disabled (REDIS_ENABLED=false)")
	}

	fmt.Fprintln(out)
	PrintSuccess(out, "All tests passed!")
	return nil
}
