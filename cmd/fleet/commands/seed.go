package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jobin06/EV-Fleet-MVP/internal/seed"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample fleet data",
	Long: `Insert the admin user, three demo vehicles with battery packs,
SoC telemetry, charging sessions, trips and alerts.

Existing rows are kept, so running it twice is harmless.

Example:
  go run ./cmd/fleet seed
  go run ./cmd/fleet seed --migrate`,
	RunE: runSeed,
}

var seedMigrate bool

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", false, "apply the schema first")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if seedMigrate {
		if err := a.repo.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	res, err := seed.New(a.repo, a.log).Run(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	out := os.Stdout
	PrintHeader(out, "Sample data")
	PrintKeyValue(out, "Users", res.Users, 10)
	PrintKeyValue(out, "Vehicles", res.Vehicles, 10)
	PrintKeyValue(out, "Telemetry", res.Telemetry, 10)
	PrintKeyValue(out, "Sessions", res.Sessions, 10)
	PrintKeyValue(out, "Trips", res.Trips, 10)
	PrintKeyValue(out, "Alerts", res.Alerts, 10)

	if *res == (seed.Result{}) {
		PrintWarning(out, "Nothing to add, data already present")
		return nil
	}
	PrintSuccess(out, "Sample data inserted")
	return nil
}
