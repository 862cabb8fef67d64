package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jobin06/EV-Fleet-MVP/pkg/config"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fleet",
	Short: "EV Fleet - operator dashboard and SoC charts",
	Long: `EV Fleet Unified CLI

Fleet dashboard server backed by PostgreSQL, with color-coded
state-of-charge charts per vehicle.

Usage:
  go run ./cmd/fleet [command]

Examples:
  go run ./cmd/fleet serve
  go run ./cmd/fleet migrate
  go run ./cmd/fleet seed
  go run ./cmd/fleet render page.html --format png -o soc.png
  go run ./cmd/fleet scheduler run fleet_summary`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads configuration and applies the global flags on top of it
func loadConfig() (*config.Config, error) {
	var files []string
	if configFile != "" {
		files = append(files, configFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}
