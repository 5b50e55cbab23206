package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsCaptured counts events handed to an analytics sink.
	EventsCaptured = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showcase_analytics_events_captured_total",
			Help: "Total number of analytics events handed to a sink",
		},
		[]string{"sink", "event"},
	)

	// EventsDropped counts events a sink could not deliver or enqueue.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showcase_analytics_events_dropped_total",
			Help: "Total number of analytics events dropped by a sink",
		},
		[]string{"sink", "reason"},
	)

	// ExperimentExposures counts exposure events per experiment and variant.
	ExperimentExposures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showcase_experiment_exposures_total",
			Help: "Total number of experiment exposure events fired",
		},
		[]string{"experiment", "variant"},
	)

	// SignupOutcomes counts signup submissions by form kind and outcome.
	SignupOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "showcase_signup_outcomes_total",
			Help: "Total number of signup submissions by outcome",
		},
		[]string{"form", "outcome"},
	)

	// HTTPRequestDuration tracks handler latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "showcase_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
