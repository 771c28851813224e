package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LookupCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyplan_lookup_calls_total",
			Help: "Total external lookups by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	LookupLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyplan_lookup_latency_seconds",
			Help:    "External lookup latency in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	FallbackVenues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyplan_fallback_venues_total",
			Help: "Venues replaced with fallback data",
		},
		[]string{"category", "reason"},
	)

	ItinerariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyplan_itineraries_total",
			Help: "Itinerary requests by result",
		},
		[]string{"result"},
	)
)
