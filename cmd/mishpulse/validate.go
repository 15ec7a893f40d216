package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/mishpulse/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a MishPulse configuration file without starting the server.

This command loads the env file, parses the YAML, expands environment
variables, and validates all fields. It's useful for CI/CD pipelines or
pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  mishpulse validate -c config.yaml
  mishpulse validate --config /etc/mishpulse/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	validateCmd.Flags().String("env-file", ".env", "env file loaded before the config is parsed (ignored if missing)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	rateLimit := "disabled"
	if !cfg.RateLimit.Disabled {
		rateLimit = fmt.Sprintf("%g rps (burst %d)", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	redisAddr := "disabled"
	if cfg.Notify.RedisEnabled() {
		redisAddr = cfg.Notify.Redis.Addr
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:        %d\n", cfg.Port)
	fmt.Printf("  Public URL:  %s\n", cfg.PublicURL)
	fmt.Printf("  Environment: %s\n", cfg.Environment)
	fmt.Printf("  Rate limit:  %s\n", rateLimit)
	fmt.Printf("  Console:     %t\n", cfg.Notify.ConsoleEnabled())
	fmt.Printf("  Redis:       %s\n", redisAddr)
	fmt.Printf("  Webhooks:    %d\n", len(cfg.Notify.Webhooks))

	return nil
}
