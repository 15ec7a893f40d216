// Package main is the entry point for the mishpulse CLI.
//
// MishPulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	mishpulse serve                    # Start with defaults
//	mishpulse serve -c config.yaml     # Start with a config file
//	mishpulse validate -c config.yaml  # Validate configuration
//	mishpulse version                  # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "mishpulse",
	Short: "A lightweight status collector",
	Long: `MishPulse collects timestamped status messages from external producers.

Producers register a project, receive a unique submission link and POST
status messages to it. Statuses are kept in timestamp order per project,
can be listed or followed live, and are fanned out to the console, Redis
Pub/Sub and webhooks.

Quick start:
  1. Run: mishpulse serve
  2. Register: curl -X POST localhost:8080/projects -d '{"name":"build"}'
  3. Submit:   curl -X POST <link> -d '{"message":"green"}'

Example config:
  port: 8080
  public_url: https://pulse.example.com
  notify:
    redis:
      addr: ${REDIS_ADDR:-}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this mishpulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mishpulse %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
