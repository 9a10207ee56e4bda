package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "activitybot"

// Skip reasons for EventsSkipped.
const (
	ReasonSeen         = "seen"
	ReasonMalformed    = "malformed"
	ReasonBanned       = "banned"
	ReasonUnrouted     = "unrouted"
	ReasonNoCollection = "no_collection"
	ReasonEnrichFailed = "enrich_failed"
)

// Metrics holds all Prometheus metrics for the notifier.
type Metrics struct {
	// --- Polling ---
	PollCycles    *prometheus.CounterVec
	PollDuration  prometheus.Histogram
	EventsFetched prometheus.Counter
	EventsNew     prometheus.Counter
	EventsSkipped *prometheus.CounterVec
	Watermark     prometheus.Gauge

	// --- Enrichment ---
	LookupDuration *prometheus.HistogramVec

	// --- Delivery ---
	Notifications *prometheus.CounterVec
}

// New registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		PollCycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by result (ok, fetch_error, cancelled).",
		}, []string{"result"}),
		PollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a full poll cycle including notification fan-out.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		EventsFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      "Raw events returned by the feed.",
		}),
		EventsNew: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_new_total",
			Help:      "Events newer than the watermark.",
		}),
		EventsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events not notified, by reason.",
		}, []string{"reason"}),
		Watermark: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_milliseconds",
			Help:      "Current watermark (ms since epoch).",
		}),
		LookupDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metadata_lookup_duration_seconds",
			Help:      "Metadata lookup latency by result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by sink, route and result.",
		}, []string{"sink", "route", "result"}),
	}
}

// NewNop returns metrics bound to a private registry, for tests and optional wiring.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
