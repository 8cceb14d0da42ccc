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
	// Feed metrics
	FramesReceived     *prometheus.CounterVec
	PongsSent          prometheus.Counter
	SessionsStarted    prometheus.Counter
	Reconnects         prometheus.Counter
	ConnectionState    prometheus.Gauge
	DecodeErrors       prometheus.Counter
	LastFrameTimestamp prometheus.Gauge

	// Ingestion metrics
	TradesProcessed        *prometheus.CounterVec
	StoreSize              *prometheus.GaugeVec
	TradeProcessingLatency prometheus.Histogram

	// Archive metrics
	ArchiveEnqueued      prometheus.Counter
	ArchiveDropped       prometheus.Counter
	ArchiveWrites        *prometheus.CounterVec
	ArchiveWriteDuration *prometheus.HistogramVec

	// API metrics
	APIRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pump_trade_feed"
	}
	factory := promauto.With(reg)

	return &Metrics{
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "frames_received_total",
			Help:      "Total number of frames received by type",
		}, []string{"type"}),
		PongsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "pongs_sent_total",
			Help:      "Total number of keepalive replies sent",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "sessions_started_total",
			Help:      "Total number of connection attempts",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of scheduled reconnects",
		}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "connection_state",
			Help:      "Current connection state (0=disconnected .. 4=streaming)",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed event frames",
		}),
		LastFrameTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_frame_timestamp",
			Help:      "Unix timestamp of the last frame received from the feed",
		}),

		TradesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_processed_total",
			Help:      "Total number of tradeCreated events by outcome",
		}, []string{"outcome"}),
		StoreSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "store_size",
			Help:      "Current number of records in the event store by direction",
		}, []string{"direction"}),
		TradeProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trade_processing_latency_seconds",
			Help:      "Time from frame decode to store insert",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),

		ArchiveEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "enqueued_total",
			Help:      "Total number of trade events queued for archiving",
		}),
		ArchiveDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "dropped_total",
			Help:      "Total number of trade events dropped because the archive queue was full",
		}),
		ArchiveWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "writes_total",
			Help:      "Total number of archive batch writes by sink and status",
		}, []string{"sink", "status"}),
		ArchiveWriteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "write_duration_seconds",
			Help:      "Archive batch write duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status",
		}, []string{"route", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordFrame increments the frame counter for a frame type.
func RecordFrame(frameType string, unixSeconds int64) {
	DefaultMetrics.FramesReceived.WithLabelValues(frameType).Inc()
	DefaultMetrics.LastFrameTimestamp.Set(float64(unixSeconds))
}

// RecordPong increments the keepalive reply counter.
func RecordPong() {
	DefaultMetrics.PongsSent.Inc()
}

// RecordSessionStart increments the connection attempt counter.
func RecordSessionStart() {
	DefaultMetrics.SessionsStarted.Inc()
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.Reconnects.Inc()
}

// SetConnectionState updates the connection state gauge.
func SetConnectionState(state int) {
	DefaultMetrics.ConnectionState.Set(float64(state))
}

// RecordDecodeError increments the malformed frame counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// RecordTrade records a processed trade outcome and its latency.
func RecordTrade(outcome string, seconds float64) {
	DefaultMetrics.TradesProcessed.WithLabelValues(outcome).Inc()
	DefaultMetrics.TradeProcessingLatency.Observe(seconds)
}

// SetStoreSize updates the store size gauge for a direction.
func SetStoreSize(direction string, n int) {
	DefaultMetrics.StoreSize.WithLabelValues(direction).Set(float64(n))
}

// RecordArchiveEnqueue records an enqueue attempt.
func RecordArchiveEnqueue(accepted bool) {
	if accepted {
		DefaultMetrics.ArchiveEnqueued.Inc()
		return
	}
	DefaultMetrics.ArchiveDropped.Inc()
}

// RecordArchiveWrite records an archive batch write.
func RecordArchiveWrite(sink string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ArchiveWrites.WithLabelValues(sink, status).Inc()
	DefaultMetrics.ArchiveWriteDuration.WithLabelValues(sink).Observe(seconds)
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(route, status string) {
	DefaultMetrics.APIRequests.WithLabelValues(route, status).Inc()
}
