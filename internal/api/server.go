// Package api serves beacon ingestion and the pipeline's read and admin
// endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/baseline"
	"codeberg.org/mutker/vitalsctl/internal/collector"
	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/telemetry"
)

const defaultShutdownTimeout = 10 * time.Second

type Config struct {
	Address         string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Deps are the services the handlers call. Recorder and Gatherer are
// optional.
type Deps struct {
	Collector *collector.Collector
	Beacons   *collector.BeaconSource
	Baselines *baseline.Manager
	Detector  *regression.Detector
	Alerts    *alert.System
	Recorder  telemetry.Recorder
	Gatherer  prometheus.Gatherer
	// DefaultPath and DefaultLocale select the baseline when a request
	// does not name one.
	DefaultPath   string
	DefaultLocale string
	Logger        logger.Logger
}

type Server struct {
	cfg    Config
	deps   Deps
	log    logger.Logger
	engine *gin.Engine
}

func New(cfg Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("api")

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestIDMiddleware(), CORSMiddleware(cfg.AllowedOrigins), LoggerMiddleware(log))

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		engine: engine,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/api/v1")
	v1.POST("/beacon", s.ingestBeacon)
	v1.GET("/vitals", s.vitals)
	v1.GET("/report", s.report)

	v1.GET("/baselines", s.listBaselines)
	v1.POST("/baselines", s.saveBaseline)
	v1.DELETE("/baselines", s.clearBaselines)
	v1.GET("/baselines/recent", s.recentBaseline)

	v1.GET("/regression", s.regression)

	v1.GET("/alerts", s.listAlerts)
	v1.DELETE("/alerts", s.clearAlerts)
	v1.GET("/alerts/config", s.alertConfig)
	v1.PUT("/alerts/config", s.configureAlerts)

	v1.GET("/snapshots", s.snapshots)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is cancelled, then shuts down within the
// configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errFactory := errors.New()

	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", s.cfg.Address).Msg("HTTP API listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errFactory.Wrap(ErrServeAPI, err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrShutdown, err)
	}
	s.log.Info().Msg("HTTP API stopped")
	return nil
}
