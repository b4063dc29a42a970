package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances (tests, CLI
// subcommands) never collide. All methods are no-ops on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	events             *prometheus.CounterVec
	commands           *prometheus.CounterVec
	completions        *prometheus.CounterVec
	tokens             *prometheus.CounterVec
	completionDuration prometheus.Histogram
	summaries          *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linechat_events_total",
				Help: "Total number of inbound platform events",
			},
			[]string{"kind"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linechat_commands_total",
				Help: "Total number of parsed commands by kind",
			},
			[]string{"command"},
		),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linechat_completions_total",
				Help: "Total number of completion calls by outcome",
			},
			[]string{"status"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linechat_tokens_total",
				Help: "Total number of tokens consumed",
			},
			[]string{"type"},
		),
		completionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "linechat_completion_duration_seconds",
				Help:    "Duration of completion calls",
				Buckets: prometheus.DefBuckets,
			},
		),
		summaries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "linechat_summaries_total",
				Help: "Total number of transcript summaries by outcome",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.events, m.commands, m.completions, m.tokens, m.completionDuration, m.summaries)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) Command(name string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
}

func (m *Metrics) Completion(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(status).Inc()
	m.completionDuration.Observe(took.Seconds())
}

func (m *Metrics) Tokens(input, cached, output int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues("input").Add(float64(input))
	m.tokens.WithLabelValues("cached_input").Add(float64(cached))
	m.tokens.WithLabelValues("output").Add(float64(output))
}

func (m *Metrics) Summary(status string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(status).Inc()
}
