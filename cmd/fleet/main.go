package main

import (
	"os"

	"github.com/Jobin06/EV-Fleet-MVP/cmd/fleet/commands"
)

// main is the entry point for the fleet CLI
// ⭐ Unified CLI entry point: go run ./cmd/fleet [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
