/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the site planner server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, then PLANNER_* environment, then flags)
  2. Configure logging
  3. Open the SQLite store
  4. Wire the planner: metrics recorder, MQTT notifier when enabled
  5. Configure HTTP router and start the status scheduler
  6. Serve until SIGINT/SIGTERM, then shut down gracefully

COMMANDS:
  site-planner              Run the HTTP server
  site-planner seed FILE    Load a JSON catalog file into the store

FLAGS:
  --config   Configuration file (.yaml, .yml or .json)
  --port     HTTP server port (overrides server.port)
  --db       SQLite database path (overrides database.path)
             Use ":memory:" for an in-memory database

EXAMPLES:
  ./site-planner --config=planner.yaml
  ./site-planner --db=":memory:" --port=3000
  PLANNER_MQTT__ENABLED=true ./site-planner
  ./site-planner seed --db=./data/planner.db catalog.json

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - factory/catalog.go: Catalog file format
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/site-planner/api"
	"github.com/warp/site-planner/config"
	_ "github.com/warp/site-planner/crew"
	"github.com/warp/site-planner/events"
	"github.com/warp/site-planner/factory"
	_ "github.com/warp/site-planner/fleet"
	"github.com/warp/site-planner/logger"
	"github.com/warp/site-planner/metrics"
	"github.com/warp/site-planner/planning"
	"github.com/warp/site-planner/store/sqlite"
)

type flags struct {
	configPath string
	port       int
	dbPath     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	root := &cobra.Command{
		Use:          "site-planner",
		Short:        "Capacity planning for construction crews and machines",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "configuration file (.yaml, .yml or .json)")
	root.PersistentFlags().IntVar(&f.port, "port", 0, "HTTP server port")
	root.PersistentFlags().StringVar(&f.dbPath, "db", "", "SQLite database path")

	root.AddCommand(&cobra.Command{
		Use:   "seed FILE",
		Short: "Load a catalog of resources, sites and assignments into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), cfg, args[0])
		},
	})
	return root
}

// loadConfig layers explicitly set flags over the file and environment.
func loadConfig(cmd *cobra.Command, f flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = f.port
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.Path = f.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Setup(cfg.Logging)
	return cfg, nil
}

// =============================================================================
// WIRING
// =============================================================================

type app struct {
	store    *sqlite.Store
	planner  *planning.Planner
	registry *prometheus.Registry
	notifier *events.MQTTNotifier
}

func (a *app) Close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	a.store.Close()
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a := &app{store: store}

	opts := []planning.Option{planning.WithLogger(logger.New("planner"))}

	if !cfg.Metrics.Disabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder, err := metrics.NewPromRecorder(a.registry)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, planning.WithRecorder(recorder))
	}

	if cfg.MQTT.Enabled {
		n, err := events.NewMQTTNotifier(cfg.MQTT, logger.New("mqtt"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		a.notifier = n
		opts = append(opts, planning.WithNotifier(n))
		log.Info().Str("broker", cfg.MQTT.Broker).Msg("publishing planner events")
	}

	svc := planning.NewAssignmentService(store, store)
	a.planner = planning.NewPlanner(svc, planning.NewAvailabilityEngine(store), opts...)
	return a, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New("server")

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.store, a.planner, logger.New("api"))
	routerOpts := api.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins}
	if a.registry != nil {
		httpMetrics, err := metrics.NewHTTPMetrics(a.registry)
		if err != nil {
			return err
		}
		routerOpts.HTTPMetrics = httpMetrics
		routerOpts.Gatherer = a.registry
		routerOpts.MetricsPath = cfg.Metrics.Path
	}

	scheduler := api.NewStatusScheduler(a.planner, logger.New("scheduler"))
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Interval = cfg.Scheduler.Interval
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, routerOpts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("db", cfg.Database.Path).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func seed(ctx context.Context, cfg *config.Config, path string) error {
	log := logger.New("seed")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	cat, err := factory.ParseCatalog(data)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := factory.Apply(ctx, cat, a.store, a.planner)
	if err != nil {
		return err
	}
	log.Info().
		Int("resources", len(cat.Resources)).
		Int("sites", len(cat.Sites)).
		Int("assignments", len(created)).
		Msg("catalog loaded")
	return nil
}
