package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TemplateValidationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fhsval_template_validation_duration_seconds",
			Help:    "Duration of per-template validation runs",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 240},
		},
		[]string{"status"},
	)

	TemplateValidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fhsval_template_validation_total",
			Help: "Total number of template validations",
		},
		[]string{"status"},
	)

	CheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fhsval_check_total",
			Help: "Total number of individual checks by outcome",
		},
		[]string{"check", "status"},
	)

	CommandInvocationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fhsval_command_invocation_total",
			Help: "Total external command invocations",
		},
		[]string{"command", "status"},
	)

	CommandInvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fhsval_command_invocation_duration_seconds",
			Help:    "Duration of external command invocations",
			Buckets: []float64{.05, .25, 1, 5, 15, 30, 60, 90, 120},
		},
		[]string{"command"},
	)
)

func RecordValidation(status string, duration float64) {
	TemplateValidationDuration.WithLabelValues(status).Observe(duration)
	TemplateValidationTotal.WithLabelValues(status).Inc()
}

func RecordCheck(check string, status string) {
	CheckTotal.WithLabelValues(check, status).Inc()
}

func RecordInvocation(command string, status string, duration float64) {
	CommandInvocationTotal.WithLabelValues(command, status).Inc()
	CommandInvocationDuration.WithLabelValues(command).Observe(duration)
}
