// Package metrics exposes Prometheus instruments for the forecasting service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the service metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	forecasts    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	messagesSent *prometheus.CounterVec
	trainingMAE  *prometheus.GaugeVec
	trainingTime *prometheus.HistogramVec
	sessions     prometheus.Gauge
}

// New creates a metrics recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebar_forecasts_total",
				Help: "Total number of forecasts served",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebar_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind"},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rebar_telegram_messages_total",
				Help: "Telegram messages sent, by result",
			},
			[]string{"result"},
		),
		trainingMAE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rebar_training_mae",
				Help: "Validation mean absolute error of the loaded model",
			},
			[]string{"kind"},
		),
		trainingTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rebar_training_duration_seconds",
				Help:    "Duration of model load or fit",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"from_cache"},
		),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "rebar_bot_sessions",
			Help: "Active bot conversation sessions",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) RecordForecast(source string) {
	if r == nil {
		return
	}
	r.forecasts.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordMessage(ok bool) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	r.messagesSent.WithLabelValues(result).Inc()
}

// RecordTraining stores the validation MAE and how long loading or fitting took.
func (r *Recorder) RecordTraining(kind string, mae, seconds float64, fromCache bool) {
	if r == nil {
		return
	}
	r.trainingMAE.WithLabelValues(kind).Set(mae)
	label := "false"
	if fromCache {
		label = "true"
	}
	r.trainingTime.WithLabelValues(label).Observe(seconds)
}

func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}
