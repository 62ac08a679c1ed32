package alert

import (
	"math"
	"net/url"
	"time"

	"codeberg.org/mutker/vitalsctl/internal/errors"
	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const (
	// HistoryKey is where the storage channel mirrors the alert history.
	HistoryKey = "performance-alert-history"
	// MaxHistory is the history ring capacity.
	MaxHistory = 100

	defaultWebhookTimeout = 5 * time.Second
)

// Threshold holds the alerting bounds for one metric. For the score the
// bounds are floors: lower values are worse.
type Threshold struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

type Channels struct {
	Console bool `json:"console"`
	Storage bool `json:"storage"`
	// Webhook is the URL alerts are posted to; empty disables the channel.
	Webhook string `json:"webhook,omitempty"`
}

type Config struct {
	Enabled    bool                        `json:"enabled"`
	Thresholds map[vitals.Metric]Threshold `json:"thresholds"`
	Channels   Channels                    `json:"channels"`
	// WebhookTimeout bounds each delivery. Deliveries are never retried.
	WebhookTimeout time.Duration `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Thresholds: map[vitals.Metric]Threshold{
			vitals.CLS:   {Warning: 0.1, Critical: 0.25},
			vitals.LCP:   {Warning: 2500, Critical: 4000},
			vitals.FID:   {Warning: 100, Critical: 300},
			vitals.FCP:   {Warning: 1800, Critical: 3000},
			vitals.TTFB:  {Warning: 800, Critical: 1800},
			vitals.Score: {Warning: 75, Critical: 50},
		},
		Channels: Channels{
			Console: true,
			Storage: true,
		},
		WebhookTimeout: defaultWebhookTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	for m, t := range c.Thresholds {
		if !alertable(m) || !t.valid(m) {
			return errFactory.WithData(ErrInvalidThreshold, struct {
				Metric   string
				Warning  float64
				Critical float64
			}{
				Metric:   m.String(),
				Warning:  t.Warning,
				Critical: t.Critical,
			})
		}
	}
	if c.Channels.Webhook != "" && !validWebhook(c.Channels.Webhook) {
		return errFactory.WithData(ErrInvalidWebhook, struct {
			URL string
		}{
			URL: c.Channels.Webhook,
		})
	}
	if c.WebhookTimeout < 0 {
		return errFactory.New(ErrInvalidTimeout)
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.Thresholds = make(map[vitals.Metric]Threshold, len(c.Thresholds))
	for m, t := range c.Thresholds {
		out.Thresholds[m] = t
	}
	return out
}

// classify grades v against t; SeverityNone means no alert.
func (t Threshold) classify(m vitals.Metric, v float64) vitals.Severity {
	if m.LowerIsBetter() {
		switch {
		case v >= t.Critical:
			return vitals.SeverityCritical
		case v >= t.Warning:
			return vitals.SeverityWarning
		}
		return vitals.SeverityNone
	}

	switch {
	case v <= t.Critical:
		return vitals.SeverityCritical
	case v <= t.Warning:
		return vitals.SeverityWarning
	}
	return vitals.SeverityNone
}

func (t Threshold) bound(sev vitals.Severity) float64 {
	if sev == vitals.SeverityCritical {
		return t.Critical
	}
	return t.Warning
}

func (t Threshold) valid(m vitals.Metric) bool {
	if !finite(t.Warning) || !finite(t.Critical) || t.Warning < 0 || t.Critical < 0 {
		return false
	}
	if m.LowerIsBetter() {
		return t.Warning <= t.Critical
	}
	return t.Warning >= t.Critical
}

func alertable(m vitals.Metric) bool {
	for _, am := range vitals.AlertMetrics {
		if am == m {
			return true
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validWebhook(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
