// Package metrics exposes pipeline counters and the latest vitals as
// Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

const namespace = "vitalsctl"

const (
	// OutcomeSuccess labels webhook deliveries that got a 2xx response.
	OutcomeSuccess = "success"
	// OutcomeError labels webhook deliveries that failed or were rejected.
	OutcomeError = "error"
)

var (
	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Total number of alerts raised, partitioned by severity and metric.",
		},
		[]string{"severity", "metric"},
	)

	regressionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regressions_total",
			Help:      "Total number of detected regressions, partitioned by metric and severity.",
		},
		[]string{"metric", "severity"},
	)

	webhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Total number of webhook deliveries attempted, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	beaconsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "beacons_total",
			Help:      "Total number of instrumentation beacons accepted.",
		},
	)

	baselinesSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "baselines_saved_total",
			Help:      "Total number of baselines written to the store.",
		},
	)

	monitorCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "Total number of completed monitoring cycles.",
		},
	)

	vitalsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "web_vital",
			Help:      "Most recent value of each web vital; milliseconds except cls and score.",
		},
		[]string{"metric"},
	)
)

// Register attaches vitalsctl collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		alertsTotal,
		regressionsTotal,
		webhookDeliveriesTotal,
		beaconsTotal,
		baselinesSavedTotal,
		monitorCyclesTotal,
		vitalsGauge,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveAlert(severity vitals.Severity, metric vitals.Metric) {
	label := ""
	if metric != vitals.MetricUnknown {
		label = metric.String()
	}
	alertsTotal.WithLabelValues(severity.String(), label).Inc()
}

func ObserveRegression(metric vitals.Metric, severity vitals.Severity) {
	regressionsTotal.WithLabelValues(metric.String(), severity.String()).Inc()
}

// ObserveWebhook records a delivery; any outcome other than OutcomeSuccess
// counts as an error.
func ObserveWebhook(outcome string) {
	label := outcome
	if label != OutcomeSuccess {
		label = OutcomeError
	}
	webhookDeliveriesTotal.WithLabelValues(label).Inc()
}

func ObserveBeacon() {
	beaconsTotal.Inc()
}

func ObserveBaselineSaved() {
	baselinesSavedTotal.Inc()
}

func ObserveMonitorCycle() {
	monitorCyclesTotal.Inc()
}

// SetVitals publishes the latest value of each metric in vals.
func SetVitals(vals map[vitals.Metric]float64) {
	for m, v := range vals {
		vitalsGauge.WithLabelValues(m.String()).Set(v)
	}
}
