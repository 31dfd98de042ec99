/*
main.go - Application entry point

PURPOSE:
  Starts the Edifice resource allocation service, or runs a single expiry
  sweep from the command line.

COMMANDS:
  server [serve]  HTTP API with the expiry scheduler (default)
  server sweep    Run the expiry sweep once and exit

STARTUP SEQUENCE (serve):
  1. Load configuration (defaults, YAML, .env, EDIFICE_* env, flags)
  2. Configure logging
  3. Initialize SQLite store and engine
  4. Start the expiry scheduler
  5. Start HTTP server with graceful shutdown

FLAGS:
  --config   YAML config file (also EDIFICE_CONFIG_PATH)
  --db       SQLite database path; ":memory:" for an in-memory database
  --port     HTTP server port

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the expiry scheduler (waits for a running sweep)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server --db ./data/edifice.db
  ./server sweep --config ./edifice.yaml

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - api/scheduler.go: Expiry scheduler
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edifice/resource-engine/api"
	"github.com/edifice/resource-engine/config"
	"github.com/edifice/resource-engine/inventory"
	"github.com/edifice/resource-engine/logutils"
	"github.com/edifice/resource-engine/store/sqlite"
)

type options struct {
	configPath string
	dbPath     string
	port       int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Construction resource allocation and availability service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides config)")
	root.PersistentFlags().IntVar(&opts.port, "port", 0, "HTTP server port (overrides config)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the expiry scheduler",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Mark returnable allocations older than the max age as consumed, then exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSweep(cmd, opts)
			},
		},
	)
	return root
}

func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DB.Path = opts.dbPath
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	logutils.Configure(cfg.Log.Level, cfg.Log.Format, nil)
	return cfg, cfg.Validate()
}

func openEngine(cfg config.Config) (*sqlite.Store, *inventory.Engine, error) {
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, nil, err
	}
	engine := inventory.NewEngine(store, logutils.Component("engine"))
	engine.MaxAge = cfg.Expiry.MaxAge
	return store, engine, nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log := logutils.Component("server")

	store, engine, err := openEngine(cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize database")
		return err
	}
	defer store.Close()

	metrics := api.NewMetrics()
	scheduler := api.NewExpiryScheduler(engine, store, metrics)
	scheduler.Schedule = cfg.Expiry.Schedule
	scheduler.Enabled = cfg.Expiry.Enabled
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Error("invalid expiry schedule")
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(engine, scheduler, metrics)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logutils.Fields{"addr": server.Addr, "db": cfg.DB.Path}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("server failed")
			return err
		}
	}

	log.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
		return err
	}

	log.Info("server stopped")
	return nil
}

func runSweep(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	store, engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	scheduler := api.NewExpiryScheduler(engine, store, nil)
	run, err := scheduler.RunNow(cmd.Context())
	logutils.Log.WithFields(logutils.Fields{
		"run":     run.ID,
		"scanned": run.Scanned,
		"expired": run.Expired,
		"status":  run.Status,
	}).Info("sweep done")
	return err
}
