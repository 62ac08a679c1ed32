// Package alert evaluates metrics and regressions against thresholds and
// dispatches the resulting alerts to the console, a bounded history and an
// optional webhook.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/logger"
	"codeberg.org/mutker/vitalsctl/internal/metrics"
	"codeberg.org/mutker/vitalsctl/internal/regression"
	"codeberg.org/mutker/vitalsctl/internal/storage"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// System is safe for concurrent use. No method returns delivery or
// persistence failures; they are logged.
type System struct {
	mu      sync.RWMutex
	cfg     Config
	history *history

	store  storage.Store
	log    logger.Logger
	client *http.Client
	clock  func() time.Time

	// inflight holds the webhook deliveries not yet finished, under mu.
	inflight map[*Delivery]struct{}
}

type Option func(*System)

// WithStore mirrors the history to store under HistoryKey.
func WithStore(store storage.Store) Option {
	return func(s *System) { s.store = store }
}

func WithLogger(l logger.Logger) Option {
	return func(s *System) { s.log = l }
}

// WithHTTPClient replaces the webhook client. Its Timeout is left as given.
func WithHTTPClient(c *http.Client) Option {
	return func(s *System) { s.client = c }
}

func WithClock(clock func() time.Time) Option {
	return func(s *System) { s.clock = clock }
}

func New(cfg Config, opts ...Option) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.New().Wrap(ErrInvalidConfig, err)
	}
	if cfg.WebhookTimeout == 0 {
		cfg.WebhookTimeout = defaultWebhookTimeout
	}

	s := &System{
		cfg:      cfg.clone(),
		history:  newHistory(MaxHistory),
		log:      logger.Default(),
		clock:    time.Now,
		inflight: make(map[*Delivery]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: cfg.WebhookTimeout}
	}
	s.log = s.log.With("alert")
	return s, nil
}

// Config returns a copy of the active configuration.
func (s *System) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Configure deep-merges p into the active configuration and returns the
// result. Invalid fields are dropped.
func (s *System) Configure(p Partial) Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = merge(s.cfg, p)
	return s.cfg.clone()
}

// ConfigureJSON applies a loosely typed JSON update. The configuration is
// unchanged when raw is not a JSON object.
func (s *System) ConfigureJSON(raw []byte) (Config, error) {
	p, err := ParsePartial(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("Ignoring malformed alert configuration")
		return s.Config(), err
	}
	return s.Configure(p), nil
}

// CheckMetrics raises one alert per metric in vals that meets its warning
// or critical threshold.
func (s *System) CheckMetrics(ctx context.Context, vals map[vitals.Metric]float64) []Alert {
	cfg := s.Config()
	if !cfg.Enabled {
		return []Alert{}
	}

	alerts := []Alert{}
	for _, m := range vitals.AlertMetrics {
		v, ok := vals[m]
		if !ok || !finite(v) {
			continue
		}
		t, ok := cfg.Thresholds[m]
		if !ok {
			continue
		}
		sev := t.classify(m, v)
		if sev == vitals.SeverityNone {
			continue
		}

		bound := t.bound(sev)
		msg := fmt.Sprintf("%s is %s: %s (threshold %s)",
			strings.ToUpper(m.String()), sev, m.Format(v), m.Format(bound))
		a := s.newAlert(sev, msg, m, &v, Data{
			"metric":    m.String(),
			"value":     v,
			"threshold": bound,
		})
		s.dispatch(ctx, cfg, a)
		alerts = append(alerts, a)
	}
	return alerts
}

// CheckAndAlert runs CheckMetrics and raises one alert per regression in res.
func (s *System) CheckAndAlert(ctx context.Context, vals map[vitals.Metric]float64, res *regression.Result) []Alert {
	cfg := s.Config()
	if !cfg.Enabled {
		return []Alert{}
	}

	alerts := s.CheckMetrics(ctx, vals)
	if res == nil || !res.HasRegression {
		return alerts
	}

	for _, r := range res.Regressions {
		change := fmt.Sprintf("%.1f%%", r.ChangePercent)
		if r.Baseline == 0 {
			change = "+" + r.Metric.Format(r.Change)
		}
		msg := fmt.Sprintf("%s regressed by %s: %s -> %s",
			strings.ToUpper(r.Metric.String()), change,
			r.Metric.Format(r.Baseline), r.Metric.Format(r.Current))
		current := r.Current
		a := s.newAlert(r.Severity, msg, r.Metric, &current, Data{
			"metric":        r.Metric.String(),
			"value":         r.Current,
			"baseline":      r.Baseline,
			"change":        r.Change,
			"changePercent": r.ChangePercent,
			"threshold":     r.Threshold,
			"baselineId":    res.Baseline.ID,
		})
		s.dispatch(ctx, cfg, a)
		alerts = append(alerts, a)
	}
	return alerts
}

// SendAlert dispatches a custom alert to every enabled channel. Metric and
// value are taken from data["metric"] and data["value"] when present. The
// webhook post runs detached; the returned Delivery reports its outcome.
func (s *System) SendAlert(ctx context.Context, sev vitals.Severity, msg string, data Data) *Delivery {
	cfg := s.Config()
	if !cfg.Enabled || sev == vitals.SeverityNone {
		return completed()
	}

	var (
		metric vitals.Metric
		value  *float64
	)
	switch m := data["metric"].(type) {
	case vitals.Metric:
		metric = m
	case string:
		metric, _ = vitals.ParseMetric(m)
	}
	if v, ok := data["value"].(float64); ok {
		value = &v
	}

	return s.dispatch(ctx, cfg, s.newAlert(sev, msg, metric, value, data))
}

// History returns the stored alerts, oldest first.
func (s *System) History() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.list()
}

func (s *System) FilterHistory(f Filter) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Alert{}
	for _, a := range s.history.entries {
		if f.match(a) {
			out = append(out, a.detached())
		}
	}
	return out
}

// ClearHistory empties the history and its mirror.
func (s *System) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.clear()
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, HistoryKey); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear alert history mirror")
	}
}

// Restore loads a previously mirrored history and returns how many entries
// were read. Unreadable data leaves the history empty.
func (s *System) Restore(ctx context.Context) int {
	if s.store == nil {
		return 0
	}

	raw, err := s.store.Get(ctx, HistoryKey)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.log.Warn().Err(err).Msg("Failed to read alert history mirror")
		}
		return 0
	}

	var entries []Alert
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn().
			Err(errors.New().Wrap(errors.ErrDecode, err)).
			Msg("Stored alert history is corrupt, ignoring")
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.replace(entries)
	return len(s.history.entries)
}

// Wait blocks until every webhook delivery in flight when it is called has
// finished, or ctx is done. Alerts may keep being raised meanwhile.
func (s *System) Wait(ctx context.Context) error {
	s.mu.RLock()
	pending := make([]*Delivery, 0, len(s.inflight))
	for d := range s.inflight {
		pending = append(pending, d)
	}
	s.mu.RUnlock()

	for _, d := range pending {
		select {
		case <-d.Done():
		case <-ctx.Done():
			return errors.New().Wrap(errors.ErrTimeout, ctx.Err())
		}
	}
	return nil
}

func (s *System) newAlert(sev vitals.Severity, msg string, m vitals.Metric, v *float64, data Data) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Severity:  sev,
		Message:   msg,
		Metric:    m,
		Value:     v,
		Timestamp: s.clock(),
		Data:      data.clone(),
	}
}

// dispatch completes the console and storage channels before returning;
// only the webhook outlives the call.
func (s *System) dispatch(ctx context.Context, cfg Config, a Alert) *Delivery {
	metrics.ObserveAlert(a.Severity, a.Metric)

	if cfg.Channels.Console {
		s.logAlert(a)
	}
	if cfg.Channels.Storage {
		s.record(ctx, a)
	}
	if cfg.Channels.Webhook == "" {
		return completed()
	}

	d := newDelivery()
	s.mu.Lock()
	s.inflight[d] = struct{}{}
	s.mu.Unlock()
	go s.deliver(d, cfg.Channels.Webhook, cfg.WebhookTimeout, a.detached())
	return d
}

func (s *System) logAlert(a Alert) {
	var ev *logger.LogEvent
	if a.Severity == vitals.SeverityCritical {
		ev = s.log.Error()
	} else {
		ev = s.log.Warn()
	}

	ev.Str("alert_id", a.ID).Str("severity", a.Severity.String())
	if a.Metric != vitals.MetricUnknown {
		ev.Str("metric", a.Metric.String())
	}
	if a.Value != nil {
		ev.Float64("value", *a.Value)
	}
	ev.Msg(a.Message)
}

// record appends a to the history and rewrites the mirror.
func (s *System) record(ctx context.Context, a Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history.add(a)
	if s.store == nil {
		return
	}

	raw, err := json.Marshal(s.history.entries)
	if err != nil {
		s.log.Warn().Err(errors.New().Wrap(errors.ErrEncode, err)).Msg("Failed to encode alert history")
		return
	}
	if err := s.store.Set(ctx, HistoryKey, raw); err != nil {
		s.log.Warn().Err(err).Msg("Failed to mirror alert history")
	}
}
