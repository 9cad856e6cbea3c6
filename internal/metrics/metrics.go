// Package metrics provides Prometheus metrics for imgpipe.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransformsTotal counts generated URLs by kind and whether the source was on the CDN.
	TransformsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imgpipe",
			Name:      "transforms_total",
			Help:      "Total number of generated image URLs",
		},
		[]string{"kind", "cdn"},
	)

	// PreloadsTotal counts preload registrations by outcome.
	PreloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imgpipe",
			Name:      "preloads_total",
			Help:      "Total number of preload hint registrations",
		},
		[]string{"result"},
	)

	// LoaderTransitionsTotal counts image loader state changes.
	LoaderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imgpipe",
			Name:      "loader_transitions_total",
			Help:      "Total number of image loader state transitions",
		},
		[]string{"from", "to"},
	)

	// WarmFetchTotal counts CDN warm-up fetches by final status.
	WarmFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imgpipe",
			Name:      "warm_fetch_total",
			Help:      "Total number of CDN warm-up fetches",
		},
		[]string{"status"},
	)

	// WarmFetchDuration measures warm-up fetch latency.
	WarmFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "imgpipe",
			Name:      "warm_fetch_duration_seconds",
			Help:      "Duration of CDN warm-up fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RecordTransform(kind string, cdn bool) {
	label := "false"
	if cdn {
		label = "true"
	}
	TransformsTotal.WithLabelValues(kind, label).Inc()
}

func RecordPreload(result string) {
	PreloadsTotal.WithLabelValues(result).Inc()
}

func RecordTransition(from, to string) {
	LoaderTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordWarmFetch(status string, seconds float64) {
	WarmFetchTotal.WithLabelValues(status).Inc()
	WarmFetchDuration.Observe(seconds)
}
