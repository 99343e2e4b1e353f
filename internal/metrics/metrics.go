package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Upstream API metrics
var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameUpstreamRequestsTotal,
			Help: HelpTextUpstreamRequestsTotal,
		},
		[]string{LabelEndpoint, LabelStatus},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameUpstreamRequestDuration,
			Help:    HelpTextUpstreamRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelEndpoint},
	)
)

// Sync and aggregation metrics
var (
	AggregationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameAggregationRunsTotal,
			Help: HelpTextAggregationRunsTotal,
		},
		[]string{LabelSeason},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    MetricNameAggregationDuration,
			Help:    HelpTextAggregationDuration,
			Buckets: HTTPLatencyBuckets,
		},
	)

	CharactersSyncedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameCharactersSyncedTotal,
			Help: HelpTextCharactersSyncedTotal,
		},
	)

	CharacterSyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: MetricNameCharacterSyncErrors,
			Help: HelpTextCharacterSyncErrors,
		},
	)

	RosterSyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameRosterSyncRunsTotal,
			Help: HelpTextRosterSyncRunsTotal,
		},
		[]string{LabelResult},
	)
)
