package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/mishpulse"
	"github.com/jpalmerr/mishpulse/config"
	"github.com/jpalmerr/mishpulse/internal/server"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts the MishPulse API server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the MishPulse API server.

The server will:
  - Load variables from the env file, if present
  - Load configuration from the YAML file, or use defaults when none is given
  - Connect the configured notifiers (console, Redis, webhooks)
  - Serve the HTTP API on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  mishpulse serve
  mishpulse serve -c config.yaml --env-file .env.production`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (optional)")
	serveCmd.Flags().String("env-file", ".env", "env file loaded before the config is parsed (ignored if missing)")
}

// loadConfig loads the env file and then the config file, falling back to
// defaults when no config file is given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		return config.Default()
	}
	return config.Load(configFile)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	server.SetMode(cfg.Environment)

	logger.Info("config loaded",
		"environment", cfg.Environment,
		"public_url", cfg.PublicURL,
		"webhooks", len(cfg.Notify.Webhooks),
		"redis", cfg.Notify.RedisEnabled(),
	)

	opts, closeFn := buildOptions(cfg, logger)
	defer closeFn()

	mp, err := mishpulse.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create MishPulse: %w", err)
	}
	defer mp.Close()

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", "port", cfg.Port)

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- mp.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// buildOptions converts the config into SDK options. The returned function
// releases connections opened here.
func buildOptions(cfg *config.Config, logger *slog.Logger) ([]mishpulse.Option, func()) {
	opts := []mishpulse.Option{
		mishpulse.WithPort(cfg.Port),
		mishpulse.WithPublicURL(cfg.PublicURL),
		mishpulse.WithLogger(logger),
		mishpulse.WithVersion(version),
		mishpulse.WithStreamBuffer(cfg.Notify.StreamBuffer),
	}
	closeFn := func() {}

	if cfg.RateLimit.Disabled {
		opts = append(opts, mishpulse.WithRateLimit(0, 0))
	} else {
		opts = append(opts, mishpulse.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	if cfg.Notify.ConsoleEnabled() {
		opts = append(opts, mishpulse.WithConsole(os.Stdout))
	}

	if cfg.Notify.RedisEnabled() {
		rc := cfg.Notify.Redis
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})

		// an unreachable Redis is not fatal; publishes fail and are logged
		pingCtx, cancel := context.WithTimeout(context.Background(), rc.Timeout.Duration())
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis not reachable", "addr", rc.Addr, "error", err)
		}
		cancel()

		opts = append(opts, mishpulse.WithRedis(client, rc.ChannelPrefix, rc.Timeout.Duration()))
		closeFn = func() { _ = client.Close() }
	}

	for _, wh := range cfg.Notify.Webhooks {
		opts = append(opts, mishpulse.WithWebhook(wh.URL, wh.Headers, wh.Timeout.Duration()))
	}

	return opts, closeFn
}
