package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/api"
	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/collector"
	"codeberg.org/mutker/vitalsctl/internal/config"
	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/metrics"
	"codeberg.org/mutker/vitalsctl/internal/monitor"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/telemetry"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.branch=..."
var (
	version = "dev"
	commit  = ""
	branch  = ""
)

const deliveryDrainTimeout = 10 * time.Second

type app struct {
	cfg      *config.Config
	store    storage.Store
	recorder telemetry.Recorder
	alerts   *alert.System
	monitor  *monitor.Monitor
	server   *api.Server
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithArgs(os.Args[1:]))
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyBuildFlags(cfg)

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	a, err := newApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize application")
	}

	if err := a.run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	a.cleanup()
}

func applyBuildFlags(cfg *config.Config) {
	if cfg.Build.Version == "dev" {
		cfg.Build.Version = version
	}
	if cfg.Build.Commit == "" {
		cfg.Build.Commit = commit
	}
	if cfg.Build.Branch == "" {
		cfg.Build.Branch = branch
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	errFactory := errors.New()
	log := logger.Default()

	store, err := storage.Open(ctx, cfg.StorageConfig(), log)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrOpenStorage, err)
	}

	recorder, err := telemetry.NewService(cfg.TelemetryConfig(), log)
	if err != nil {
		store.Close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(reg); err != nil {
		recorder.Close()
		store.Close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	// Config.Load has validated both conversions
	alertCfg, _ := cfg.AlertConfig()
	thresholds, _ := cfg.RegressionThresholds()

	alerts, err := alert.New(alertCfg, alert.WithStore(store), alert.WithLogger(log))
	if err != nil {
		recorder.Close()
		store.Close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	if n := alerts.Restore(ctx); n > 0 {
		logger.Info().Int("entries", n).Msg("Alert history restored")
	}

	beacons := collector.NewBeaconSource()
	col := collector.New(beacons.Sources(), collector.WithLogger(log))
	baselines := baseline.NewManager(store,
		baseline.WithLogger(log),
		baseline.WithBuildInfo(cfg.BuildInfo(time.Now())),
	)
	detector := regression.NewDetector(thresholds)

	a := &app{
		cfg:      cfg,
		store:    store,
		recorder: recorder,
		alerts:   alerts,
	}

	if cfg.Monitor.Enabled {
		a.monitor, err = monitor.New(cfg.MonitorConfig(), monitor.Deps{
			Source:    col,
			Baselines: baselines,
			Detector:  detector,
			Alerts:    alerts,
			Recorder:  recorder,
			Logger:    log,
		})
		if err != nil {
			recorder.Close()
			store.Close()
			return nil, errFactory.Wrap(errors.ErrInitApp, err)
		}
	}

	a.server = api.New(cfg.ServerConfig(), api.Deps{
		Collector:     col,
		Beacons:       beacons,
		Baselines:     baselines,
		Detector:      detector,
		Alerts:        alerts,
		Recorder:      recorder,
		Gatherer:      reg,
		DefaultPath:   cfg.Monitor.Path,
		DefaultLocale: cfg.Monitor.Locale,
		Logger:        log,
	})

	logger.Info().
		Str("version", cfg.Build.Version).
		Str("storage", cfg.Storage.Backend).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Bool("monitor", cfg.Monitor.Enabled).
		Msg("vitalsctl initialized")

	return a, nil
}

// run serves the API and the monitor until ctx is cancelled or the server
// fails.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		serveMu sync.Mutex
		runErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.server.ListenAndServe(ctx); err != nil {
			serveMu.Lock()
			runErr = err
			serveMu.Unlock()
			cancel()
		}
	}()

	if a.monitor != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.monitor.Run(ctx); err != nil {
				serveMu.Lock()
				runErr = errors.New().Wrap(errors.ErrMainLoop, err)
				serveMu.Unlock()
				cancel()
			}
		}()
	}

	wg.Wait()
	return runErr
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func (a *app) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryDrainTimeout)
	defer cancel()

	if err := a.alerts.Wait(ctx); err != nil {
		logger.Warn().Err(err).Msg("Abandoning in-flight webhook deliveries")
	}
	if err := a.recorder.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close telemetry")
	}
	if err := a.store.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close storage")
	}
	logger.Info().Msg("Exiting...")
}
