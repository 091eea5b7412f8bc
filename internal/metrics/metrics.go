package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a POST /log request.
const (
	OutcomeMethodNotAllowed = "method_not_allowed"
	OutcomeMisconfigured    = "misconfigured"
	OutcomeForbidden        = "forbidden"
	OutcomeUnauthorized     = "unauthorized"
	OutcomeOK               = "ok"
	OutcomeRelayFailed      = "relay_failed"
)

// Results of a page-load notification.
const (
	VisitRelayed     = "relayed"
	VisitDuplicate   = "duplicate"
	VisitRelayFailed = "relay_failed"
)

var (
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelog_events_total",
			Help: "Requests to the logging endpoint by outcome",
		},
		[]string{"outcome"},
	)

	GeoLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelog_geo_lookups_total",
			Help: "Geolocation lookups by result (found, missing)",
		},
		[]string{"result"},
	)

	LogFileAppendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sitelog_logfile_append_errors_total",
			Help: "Failed appends to the local request log",
		},
	)

	PageVisitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitelog_page_visits_total",
			Help: "Page-load notifications by result",
		},
		[]string{"result"},
	)

	RelayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitelog_relay_duration_seconds",
			Help:    "Duration of the Telegram relay call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		},
	)
)

func RecordEvent(outcome string) {
	EventsTotal.WithLabelValues(outcome).Inc()
}

func RecordGeoLookup(found bool) {
	result := "missing"
	if found {
		result = "found"
	}
	GeoLookupsTotal.WithLabelValues(result).Inc()
}
