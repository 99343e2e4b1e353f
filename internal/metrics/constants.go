package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "http_requests_total"
	MetricNameHTTPRequestDuration  = "http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "http_requests_in_flight"

	MetricNameUpstreamRequestsTotal   = "blizzard_api_requests_total"
	MetricNameUpstreamRequestDuration = "blizzard_api_request_duration_seconds"

	MetricNameAggregationRunsTotal   = "aggregation_runs_total"
	MetricNameAggregationDuration    = "aggregation_duration_seconds"
	MetricNameCharactersSyncedTotal  = "characters_synced_total"
	MetricNameCharacterSyncErrors    = "character_sync_errors_total"
	MetricNameRosterSyncRunsTotal    = "roster_sync_runs_total"
)

// Metric help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"

	HelpTextUpstreamRequestsTotal   = "Total number of Blizzard API requests"
	HelpTextUpstreamRequestDuration = "Blizzard API request latency in seconds"

	HelpTextAggregationRunsTotal  = "Total number of season aggregation runs"
	HelpTextAggregationDuration   = "Season aggregation latency in seconds"
	HelpTextCharactersSyncedTotal = "Total number of characters synced from the Blizzard API"
	HelpTextCharacterSyncErrors   = "Total number of per-character sync failures"
	HelpTextRosterSyncRunsTotal   = "Total number of roster sync runs"
)

// Label names
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelEndpoint = "endpoint"
	LabelSeason   = "season"
	LabelResult   = "result"
)

// HTTPLatencyBuckets covers the latency range of local reads (a few ms) up to
// Blizzard-backed refresh paths (multiple seconds).
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
