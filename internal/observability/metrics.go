// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	IngestOutcomes  *prometheus.CounterVec
	IngestLatency   *prometheus.HistogramVec
	RawRecordsSaved prometheus.Counter

	// Detector metrics
	DetectorEvaluations  *prometheus.CounterVec
	DetectorTriggers     prometheus.Counter
	DetectorCoalesced    prometheus.Counter
	DetectorReconnects   prometheus.Counter
	DetectorState        prometheus.Gauge
	AnalysisTasksDropped prometheus.Counter

	// Analytics metrics
	AnalysisDuration  prometheus.Histogram
	AnalysisPositions prometheus.Histogram
	FilterRejections  *prometheus.CounterVec

	// Oracle metrics
	OracleDegradations *prometheus.CounterVec
	SolPrice           prometheus.Gauge
	SolPriceUpdates    *prometheus.CounterVec
	SolStreamReconnect prometheus.Counter

	// Latency metrics
	RPCCallLatency      *prometheus.HistogramVec
	UpstreamCallLatency *prometheus.HistogramVec

	// Sink metrics
	SinkDeliveries *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSignalDelivered     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_monitor"
	}

	return &Metrics{
		// Ingestion metrics
		IngestOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "outcomes_total",
			Help:      "Ingestion outcomes by status, parser and reason",
		}, []string{"status", "parser", "reason"}),
		IngestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "latency_seconds",
			Help:      "Time to normalize and persist one record",
			Buckets:   prometheus.DefBuckets,
		}, []string{"parser"}),
		RawRecordsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "raw_records_saved_total",
			Help:      "Total number of non-swap records stored opaquely",
		}),

		// Detector metrics
		DetectorEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "evaluations_total",
			Help:      "Detector evaluations by result",
		}, []string{"result"}),
		DetectorTriggers: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "triggers_total",
			Help:      "Total number of cohort triggers",
		}),
		DetectorCoalesced: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "coalesced_total",
			Help:      "Triggers suppressed because an analysis for the token ran recently",
		}),
		DetectorReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "reconnects_total",
			Help:      "Total number of insert feed reconnects",
		}),
		DetectorState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "state",
			Help:      "Detector state (0 stopped, 1 connecting, 2 listening, 3 backoff)",
		}),
		AnalysisTasksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "analysis_tasks_dropped_total",
			Help:      "Analysis tasks rejected by a full worker queue",
		}),

		// Analytics metrics
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "duration_seconds",
			Help:      "Position analysis duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AnalysisPositions: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "positions",
			Help:      "Number of buyer positions per analysis",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		FilterRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "filter_rejections_total",
			Help:      "Tokens rejected by the market filter by reason",
		}, []string{"reason"}),

		// Oracle metrics
		OracleDegradations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "degradations_total",
			Help:      "Lookups that fell back to zero or default values",
		}, []string{"kind"}),
		SolPrice: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "sol_price_usd",
			Help:      "Last observed SOL/USD price",
		}),
		SolPriceUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "sol_price_updates_total",
			Help:      "SOL price updates by origin",
		}, []string{"origin"}),
		SolStreamReconnect: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "sol_stream_reconnects_total",
			Help:      "Total number of SOL price stream reconnects",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		UpstreamCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "call_latency_seconds",
			Help:      "HTTP API call latency by upstream and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream", "status"}),

		// Sink metrics
		SinkDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Signal deliveries by sink and status",
		}, []string{"sink", "status"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last stored record",
		}),
		LastSignalDelivered: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_signal_delivered_timestamp",
			Help:      "Unix timestamp of last delivered cohort signal",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordIngest records one ingestion outcome.
func RecordIngest(status, parser, reason string, seconds float64) {
	DefaultMetrics.IngestOutcomes.WithLabelValues(status, parser, reason).Inc()
	DefaultMetrics.IngestLatency.WithLabelValues(parser).Observe(seconds)
}

// RecordRawRecordSaved increments the opaque record counter.
func RecordRawRecordSaved() {
	DefaultMetrics.RawRecordsSaved.Inc()
}

// MarkIngestion sets the last successful ingestion timestamp.
func MarkIngestion(unix int64) {
	DefaultMetrics.LastSuccessfulIngestion.Set(float64(unix))
}

// RecordEvaluation records one detector evaluation result
// (ignored, no_match, triggered, error).
func RecordEvaluation(result string) {
	DefaultMetrics.DetectorEvaluations.WithLabelValues(result).Inc()
}

// RecordTrigger increments the cohort trigger counter.
func RecordTrigger() {
	DefaultMetrics.DetectorTriggers.Inc()
}

// RecordCoalesced increments the suppressed trigger counter.
func RecordCoalesced() {
	DefaultMetrics.DetectorCoalesced.Inc()
}

// RecordReconnect increments the detector reconnect counter.
func RecordReconnect() {
	DefaultMetrics.DetectorReconnects.Inc()
}

// SetDetectorState updates the detector state gauge.
func SetDetectorState(state int) {
	DefaultMetrics.DetectorState.Set(float64(state))
}

// RecordTaskDropped increments the dropped analysis task counter.
func RecordTaskDropped() {
	DefaultMetrics.AnalysisTasksDropped.Inc()
}

// RecordAnalysis records an analysis run.
func RecordAnalysis(seconds float64, positions int) {
	DefaultMetrics.AnalysisDuration.Observe(seconds)
	DefaultMetrics.AnalysisPositions.Observe(float64(positions))
}

// RecordFilterRejection records a token rejected by the market filter.
func RecordFilterRejection(reason string) {
	DefaultMetrics.FilterRejections.WithLabelValues(reason).Inc()
}

// RecordOracleDegradation records a price or supply fallback.
func RecordOracleDegradation(kind string) {
	DefaultMetrics.OracleDegradations.WithLabelValues(kind).Inc()
}

// RecordSolPrice records a SOL price update.
func RecordSolPrice(origin string, price float64) {
	DefaultMetrics.SolPrice.Set(price)
	DefaultMetrics.SolPriceUpdates.WithLabelValues(origin).Inc()
}

// RecordSolStreamReconnect increments the price stream reconnect counter.
func RecordSolStreamReconnect() {
	DefaultMetrics.SolStreamReconnect.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordUpstreamCall records an HTTP API call to a third-party upstream.
func RecordUpstreamCall(upstream, status string, seconds float64) {
	DefaultMetrics.UpstreamCallLatency.WithLabelValues(upstream, status).Observe(seconds)
}

// RecordSinkDelivery records a notification attempt.
func RecordSinkDelivery(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.SinkDeliveries.WithLabelValues(sink, status).Inc()
}

// MarkSignalDelivered sets the last delivered signal timestamp.
func MarkSignalDelivered(unix int64) {
	DefaultMetrics.LastSignalDelivered.Set(float64(unix))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
