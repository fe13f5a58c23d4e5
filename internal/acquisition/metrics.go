package acquisition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for a calibration campaign.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec
	RecordsTotal    prometheus.Counter
	CycleDuration   prometheus.Histogram
	Temperature     prometheus.Gauge
	Constants       *prometheus.GaugeVec
	LastRecordTime  prometheus.Gauge
	CyclesRemaining prometheus.Gauge
}

// NewMetrics creates and registers campaign metrics on reg.
//
// All metrics are prefixed with "a3drift_":
//   - a3drift_cycles_total{outcome} - cycles finished, "ok" or "failed"
//   - a3drift_records_appended_total - records written to the log
//   - a3drift_cycle_duration_seconds - wall time of one cycle including the ACAL wait
//   - a3drift_temperature_celsius - internal temperature from the last record
//   - a3drift_calibration_constant{label} - constants from the last record
//   - a3drift_last_record_timestamp_seconds - unix time of the last record
//   - a3drift_cycles_remaining - cycles left in the campaign
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "a3drift_cycles_total",
				Help: "Total number of calibration cycles finished",
			},
			[]string{"outcome"},
		),
		RecordsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "a3drift_records_appended_total",
				Help: "Total number of records appended to the calibration log",
			},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "a3drift_cycle_duration_seconds",
				Help:    "Duration of a calibration cycle in seconds",
				Buckets: []float64{1, 10, 60, 300, 600, 900, 1200, 1800, 3600},
			},
		),
		Temperature: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "a3drift_temperature_celsius",
				Help: "Internal instrument temperature from the last record",
			},
		),
		Constants: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "a3drift_calibration_constant",
				Help: "Calibration constants from the last record",
			},
			[]string{"label"},
		),
		LastRecordTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "a3drift_last_record_timestamp_seconds",
				Help: "Unix time of the last appended record",
			},
		),
		CyclesRemaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "a3drift_cycles_remaining",
				Help: "Calibration cycles left in the campaign",
			},
		),
	}
}

// RecordCycle records a finished cycle.
func (m *Metrics) RecordCycle(ok bool, durationSeconds float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(durationSeconds)
}

// RecordReadings records the numeric readings of an appended record.
// Readings that are not numbers are skipped.
func (m *Metrics) RecordReadings(unixSeconds float64, readings map[string]float64) {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
	m.LastRecordTime.Set(unixSeconds)
	for label, v := range readings {
		if label == "TEMP" {
			m.Temperature.Set(v)
			continue
		}
		m.Constants.WithLabelValues(label).Set(v)
	}
}

// SetRemaining updates the cycles-remaining gauge.
func (m *Metrics) SetRemaining(n int) {
	if m == nil {
		return
	}
	m.CyclesRemaining.Set(float64(n))
}
