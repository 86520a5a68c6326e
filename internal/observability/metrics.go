package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicketTransitions counts successful chamado state transitions by kind
	// (claim, complete, patch).
	TicketTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "ticket_transitions_total",
		Help:      "Successful chamado state transitions.",
	}, []string{"action"})

	// ScheduleStarts counts agendamentos turned into chamados.
	ScheduleStarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "schedule_starts_total",
		Help:      "Agendamentos started into preventive chamados.",
	})

	// EventsPublished counts lifecycle events handed to the notifier.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "events_published_total",
		Help:      "Lifecycle events published per topic.",
	}, []string{"topic"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "maintenance",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "maintenance",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// RecordRequest updates the HTTP request counters.
func RecordRequest(route, method string, status int, seconds float64) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

// Handler exposes the Prometheus scrape endpoint, served on its own listener
// next to the API.
func Handler() http.Handler {
	return promhttp.Handler()
}
