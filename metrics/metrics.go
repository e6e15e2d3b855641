package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for geographical data mutations and imports.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	RecordsCreated     prometheus.Counter
	RecordsUpdated     prometheus.Counter
	RecordsDeleted     prometheus.Counter
	RecordsImported    prometheus.Counter
	ImportFailures     prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered on reg.
// Use prometheus.DefaultRegisterer to expose them through promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecordsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "geodata_records_created_total",
			Help: "Total number of geographical data records created",
		}),
		RecordsUpdated: factory.NewCounter(prometheus.CounterOpts{
			Name: "geodata_records_updated_total",
			Help: "Total number of geographical data records updated",
		}),
		RecordsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "geodata_records_deleted_total",
			Help: "Total number of geographical data records deleted",
		}),
		RecordsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "geodata_records_imported_total",
			Help: "Total number of records stored by CSV imports",
		}),
		ImportFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "geodata_import_failures_total",
			Help: "Total number of CSV rows that could not be imported",
		}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geodata_validation_failures_total",
			Help: "Total number of rejected create and update requests",
		}, []string{"operation"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geodata_operation_duration_seconds",
			Help:    "Duration of record service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementCreated records a successful record creation.
func (m *Metrics) IncrementCreated() {
	if m != nil {
		m.RecordsCreated.Inc()
	}
}

// IncrementUpdated records a successful record update.
func (m *Metrics) IncrementUpdated() {
	if m != nil {
		m.RecordsUpdated.Inc()
	}
}

// IncrementDeleted records a successful record deletion.
func (m *Metrics) IncrementDeleted() {
	if m != nil {
		m.RecordsDeleted.Inc()
	}
}

// AddImported records the outcome of a single import batch.
func (m *Metrics) AddImported(stored, failed int) {
	if m != nil {
		m.RecordsImported.Add(float64(stored))
		m.ImportFailures.Add(float64(failed))
	}
}

// IncrementValidationFailure records a rejected create or update.
func (m *Metrics) IncrementValidationFailure(operation string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(operation).Inc()
	}
}

// ObserveOperation records the duration of a service operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
