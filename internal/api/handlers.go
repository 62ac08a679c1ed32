package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"codeberg.org/mutker/vitalsctl/internal/alert"
	"codeberg.org/mutker/vitalsctl/internal/collector"
	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/metrics"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/telemetry"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 1000
	maxBodyBytes         = 1 << 20
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ingestBeacon(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var b collector.Beacon
	if err := c.ShouldBindJSON(&b); err != nil {
		s.log.Debug().Err(err).Msg("Rejected beacon")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	s.deps.Beacons.Apply(b, s.deps.Collector)
	metrics.ObserveBeacon()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) vitals(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Collector.GetDetailedMetrics())
}

func (s *Server) report(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Collector.GenerateDiagnosticReport())
}

func (s *Server) listBaselines(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Baselines.GetBaselines(c.Request.Context()))
}

// saveBaseline stores the posted snapshot, or the current one when the
// body is empty.
func (s *Server) saveBaseline(c *gin.Context) {
	snap := s.deps.Collector.GetDetailedMetrics()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if len(body) > 0 {
		snap = vitals.MetricsSnapshot{}
		if err := json.Unmarshal(body, &snap); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot"})
			return
		}
	}

	b, ok := s.deps.Baselines.SaveBaseline(c.Request.Context(), snap)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "baseline not persisted", "baseline": b})
		return
	}
	metrics.ObserveBaselineSaved()
	c.JSON(http.StatusCreated, b)
}

func (s *Server) clearBaselines(c *gin.Context) {
	if !s.deps.Baselines.Clear(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "baselines not cleared"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) pathAndLocale(c *gin.Context) (string, string) {
	return c.DefaultQuery("path", s.deps.DefaultPath), c.DefaultQuery("locale", s.deps.DefaultLocale)
}

func (s *Server) recentBaseline(c *gin.Context) {
	path, locale := s.pathAndLocale(c)

	b, ok := s.deps.Baselines.GetRecentBaseline(c.Request.Context(), path, locale)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching baseline"})
		return
	}
	c.JSON(http.StatusOK, b)
}

// regression compares the current snapshot against the recent baseline.
// format=text returns the human-readable report.
func (s *Server) regression(c *gin.Context) {
	path, locale := s.pathAndLocale(c)

	b, ok := s.deps.Baselines.GetRecentBaseline(c.Request.Context(), path, locale)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching baseline"})
		return
	}

	res := s.deps.Detector.DetectRegression(s.deps.Collector.GetDetailedMetrics(), b)
	if c.Query("format") == "text" {
		c.String(http.StatusOK, regression.GenerateReport(res))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) listAlerts(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Alerts.FilterHistory(f))
}

func (s *Server) clearAlerts(c *gin.Context) {
	s.deps.Alerts.ClearHistory(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) alertConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Alerts.Config())
}

func (s *Server) configureAlerts(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	cfg, err := s.deps.Alerts.ConfigureJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "configuration must be a JSON object"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) snapshots(c *gin.Context) {
	limit := defaultSnapshotLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSnapshotLimit)
	}

	if s.deps.Recorder == nil {
		c.JSON(http.StatusOK, []telemetry.Record{})
		return
	}

	records, err := s.deps.Recorder.Recent(c.Request.Context(), limit)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read snapshots")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshots unavailable"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func parseFilter(c *gin.Context) (alert.Filter, error) {
	var f alert.Filter

	if raw := c.Query("severity"); raw != "" {
		sev, ok := vitals.ParseSeverity(raw)
		if !ok {
			return f, invalidArgument("unknown severity " + strconv.Quote(raw))
		}
		f.Severity = sev
	}
	if raw := c.Query("metric"); raw != "" {
		m, ok := vitals.ParseMetric(raw)
		if !ok {
			return f, invalidArgument("unknown metric " + strconv.Quote(raw))
		}
		f.Metric = m
	}

	var err error
	if f.StartTime, err = parseTime(c.Query("start")); err != nil {
		return f, invalidArgument("start must be RFC 3339")
	}
	if f.EndTime, err = parseTime(c.Query("end")); err != nil {
		return f, invalidArgument("end must be RFC 3339")
	}
	return f, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func invalidArgument(msg string) error {
	return errors.New().WithMessage(errors.ErrInvalidArgument, msg)
}
