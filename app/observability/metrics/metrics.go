package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SignupsTotal           metric.Int64Counter
	LoginsTotal            metric.Int64Counter
	BookingsTotal          metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once,
// using the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("go-tour-bookings")
		var err error
		m := &AppMetrics{}

		m.SignupsTotal, err = meter.Int64Counter(
			"signups_total",
			metric.WithDescription("Total number of completed signups"),
			metric.WithUnit("{signup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create signups_total: %v", err)
		}

		m.LoginsTotal, err = meter.Int64Counter(
			"logins_total",
			metric.WithDescription("Total number of successful logins"),
			metric.WithUnit("{login}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create logins_total: %v", err)
		}

		m.BookingsTotal, err = meter.Int64Counter(
			"bookings_total",
			metric.WithDescription("Total number of bookings recorded"),
			metric.WithUnit("{booking}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create bookings_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of failed database queries"),
			metric.WithUnit("{query}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global instruments, initializing them against the current
// MeterProvider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

// WithAttrs packages attributes for a metric record call.
func WithAttrs(attrs ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(attrs...)
}
