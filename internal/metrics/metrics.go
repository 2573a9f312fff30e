// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomengine

// Package metrics provides Prometheus instrumentation for the room
// lifecycle, pool builder, metadata client, and vote consensus engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pool Builder Metrics

	PoolBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pool_build_duration_seconds",
			Help:    "Duration of a createRoom pool-build call, end to end.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"media_type", "outcome"},
	)

	PoolBuildTierAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_build_tier_accepted_total",
			Help: "Number of catalog entries accepted by priority tier.",
		},
		[]string{"tier"},
	)

	PoolBuildFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_build_failures_total",
			Help: "Number of failed createRoom pool builds by reason.",
		},
		[]string{"reason"},
	)

	// Metadata Client Metrics

	MetadataRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_client_requests_total",
			Help: "Total number of metadata provider HTTP calls by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	MetadataRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metadata_client_request_duration_seconds",
			Help:    "Duration of metadata provider HTTP calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=half-open, 2=open.",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions.",
		},
		[]string{"name", "from", "to"},
	)

	// Vote Consensus Metrics

	VoteTallyIncrements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vote_tally_increments_total",
			Help: "Total number of YES-vote tally increments processed by the consensus engine.",
		},
	)

	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_total",
			Help: "Total number of rooms that reached MATCHED.",
		},
	)

	MatchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_latency_seconds",
			Help:    "Time from room creation to MATCHED transition.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s .. 8192s (~2.3h)
		},
	)

	// Room Lifecycle Metrics

	RoomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_joins_total",
			Help: "Total number of joinRoom attempts by outcome.",
		},
		[]string{"outcome"},
	)

	RoomVotesCast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_votes_cast_total",
			Help: "Total number of vote attempts by outcome.",
		},
		[]string{"outcome"},
	)

	RoomExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_expirations_total",
			Help: "Total number of rooms swept into EXPIRED by the TTL sweeper.",
		},
	)

	// Storage / Change Feed Metrics

	ChangeFeedEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_feed_events_processed_total",
			Help: "Total number of change-feed events processed by outcome.",
		},
		[]string{"outcome"},
	)

	ChangeFeedLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "change_feed_lag_seconds",
			Help: "Estimated age of the oldest unacknowledged change-feed message.",
		},
	)

	// API Metrics

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of inbound API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of in-flight API requests.",
		},
	)
)

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAPIRequest records the duration and outcome of a completed API request.
func RecordAPIRequest(route, method string, statusCode int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(route, method, http.StatusText(statusCode)).Observe(duration.Seconds())
}
