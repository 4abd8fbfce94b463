package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fitness_bookings_created_total",
			Help: "Number of committed bookings",
		},
	)

	BookingsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_bookings_rejected_total",
			Help: "Number of booking attempts rejected by a business rule",
		},
		[]string{"reason"},
	)

	TransientConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_transient_conflicts_total",
			Help: "Operations aborted by lock timeouts, deadlocks or serialization failures",
		},
		[]string{"operation"},
	)

	BookingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fitness_booking_duration_seconds",
			Help:    "Time taken by the booking transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcilerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_reconciler_runs_total",
			Help: "Reconciler job runs by result",
		},
		[]string{"job", "result"},
	)

	ClassesReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_classes_reconciled_total",
			Help: "Classes changed by reconciler jobs",
		},
		[]string{"job"},
	)

	ReconcilerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fitness_reconciler_duration_seconds",
			Help: "Time taken by a reconciler job",
		},
		[]string{"job"},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_events_published_total",
			Help: "Domain events delivered to the broker",
		},
		[]string{"broker"},
	)

	EventPublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitness_event_publish_failures_total",
			Help: "Domain events that could not be delivered",
		},
		[]string{"broker"},
	)
)

func Register() {
	prometheus.MustRegister(
		BookingsCreated,
		BookingsRejected,
		TransientConflicts,
		BookingDuration,
		ReconcilerRuns,
		ClassesReconciled,
		ReconcilerDuration,
		EventsPublished,
		EventPublishFailures,
	)
}
