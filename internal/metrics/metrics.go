package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "slot_queries_total",
			Help:      "Count of slot grid computations.",
		},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "store_errors_total",
			Help:      "Count of storage read failures by operation.",
		},
		[]string{"operation"},
	)

	nextSlotSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "next_slot_search_total",
			Help:      "Count of next-available-slot searches by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "bookings_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "bookings_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labdesk",
			Name:      "reminders_sent_total",
			Help:      "Count of reminder notifications by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			slotQueries,
			storeErrors,
			nextSlotSearches,
			httpRequests,
			bookingsCreated,
			bookingsCancelled,
			remindersSent,
		)
	})
}

func IncSlotQuery() {
	slotQueries.Inc()
}

func IncStoreError(operation string) {
	storeErrors.WithLabelValues(operation).Inc()
}

func IncNextSlotSearch(outcome string) {
	nextSlotSearches.WithLabelValues(outcome).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated(status string) {
	bookingsCreated.WithLabelValues(status).Inc()
}

func IncBookingCancelled() {
	bookingsCancelled.Inc()
}

func IncReminderSent(result string) {
	remindersSent.WithLabelValues(result).Inc()
}
