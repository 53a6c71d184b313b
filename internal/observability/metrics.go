// Package observability exposes Prometheus collectors for the generator.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fitness_generator"

var (
	eventsGeneratedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "generated_total",
		Help:      "Number of fitness events committed, grouped by activity type.",
	}, []string{"activity_type"})

	connectionAttemptsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "connection_attempts_total",
		Help:      "Number of database connection attempts grouped by result.",
	}, []string{"result"})

	persistErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "persist_errors_total",
		Help:      "Number of inserts that failed to commit.",
	})

	publishErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "publish_errors_total",
		Help:      "Number of committed events that could not be written to Kafka.",
	})

	lastPersistedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "last_event_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent event committed to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(eventsGeneratedCounter, connectionAttemptsCounter, persistErrorCounter, publishErrorCounter, lastPersistedGauge)
}

// RecordEventPersisted counts a committed event and moves the persistence watermark.
func RecordEventPersisted(activityType string, ts time.Time) {
	eventsGeneratedCounter.WithLabelValues(activityType).Inc()
	if ts.IsZero() {
		return
	}
	lastPersistedGauge.Set(float64(ts.Unix()))
}

// RecordConnectionAttempt counts one dial attempt.
func RecordConnectionAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	connectionAttemptsCounter.WithLabelValues(result).Inc()
}

// RecordPersistError counts a failed insert or commit.
func RecordPersistError() {
	persistErrorCounter.Inc()
}

// RecordPublishError counts a failed stream write.
func RecordPublishError() {
	publishErrorCounter.Inc()
}
