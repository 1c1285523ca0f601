package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelone",
			Name:      "bookings_created_total",
			Help:      "Bookings created by origin role.",
		},
		[]string{"created_by"},
	)

	bookingsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelone",
			Name:      "bookings_expired_total",
			Help:      "Expiry task outcomes.",
		},
		[]string{"result"},
	)

	queueJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelone",
			Name:      "queue_jobs_total",
			Help:      "Queue jobs by final disposition.",
		},
		[]string{"status"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "travelone",
			Name:      "queue_depth",
			Help:      "Jobs currently held per queue state.",
		},
		[]string{"state"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, bookingsExpired, queueJobs, queueDepth)
	})
}

// IncBookingCreated counts a new booking by the role that created it.
func IncBookingCreated(createdBy string) {
	bookingsCreated.WithLabelValues(createdBy).Inc()
}

// IncBookingExpired counts an expiry task outcome: cancelled, already_resolved
// or missing.
func IncBookingExpired(result string) {
	bookingsExpired.WithLabelValues(result).Inc()
}

// IncQueueJob counts a job's final disposition: completed, retried or failed.
func IncQueueJob(status string) {
	queueJobs.WithLabelValues(status).Inc()
}

// SetQueueDepth records the current number of jobs in a queue state.
func SetQueueDepth(state string, n int64) {
	queueDepth.WithLabelValues(state).Set(float64(n))
}
