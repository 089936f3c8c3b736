package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "meterbill_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	readingsRecorded  *prometheus.CounterVec
	readingRejections *prometheus.CounterVec

	invoiceGenerateTotal   *prometheus.CounterVec
	invoiceGenerateLatency *prometheus.HistogramVec
	invoiceStatusChanges   *prometheus.CounterVec

	paymentsRecorded *prometheus.CounterVec

	invoiceExportTotal   *prometheus.CounterVec
	invoiceExportLatency *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		readingsRecorded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_recorded_total",
				Help: "Total meter readings recorded by meter type and result",
			},
			[]string{"meter_type", "result"},
		)
		readingRejections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reading_rejections_total",
				Help: "Total rejected meter readings by reason",
			},
			[]string{"reason"},
		)

		invoiceGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_generate_total",
				Help: "Total invoice generate operations by result",
			},
			[]string{"result"},
		)
		invoiceGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_generate_latency_seconds",
				Help:    "Invoice generate latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		invoiceStatusChanges = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_status_changes_total",
				Help: "Total invoice status transitions by target status",
			},
			[]string{"status"},
		)

		paymentsRecorded = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_recorded_total",
				Help: "Total payments recorded by method and result",
			},
			[]string{"method", "result"},
		)

		invoiceExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_export_total",
				Help: "Total invoice export operations by format and result",
			},
			[]string{"format", "result"},
		)
		invoiceExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_export_latency_seconds",
				Help:    "Invoice export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		eventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_published_total",
				Help: "Total billing events published by type and result",
			},
			[]string{"event", "result"},
		)

		prometheus.MustRegister(
			readingsRecorded,
			readingRejections,
			invoiceGenerateTotal,
			invoiceGenerateLatency,
			invoiceStatusChanges,
			paymentsRecorded,
			invoiceExportTotal,
			invoiceExportLatency,
			eventsPublished,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncReadingRecorded increments the reading counter.
func IncReadingRecorded(meterType, result string) {
	if meterType == "" {
		meterType = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if readingsRecorded != nil {
		readingsRecorded.WithLabelValues(meterType, result).Inc()
	}
}

// IncReadingRejected increments the rejection counter.
func IncReadingRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if readingRejections != nil {
		readingRejections.WithLabelValues(reason).Inc()
	}
}

// ObserveInvoiceGenerate records generate latency and result.
func ObserveInvoiceGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if invoiceGenerateTotal != nil {
		invoiceGenerateTotal.WithLabelValues(result).Inc()
	}
	if invoiceGenerateLatency != nil {
		invoiceGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncInvoiceStatusChange increments the status transition counter.
func IncInvoiceStatusChange(status string) {
	if status == "" {
		status = "unknown"
	}
	if invoiceStatusChanges != nil {
		invoiceStatusChanges.WithLabelValues(status).Inc()
	}
}

// IncPaymentRecorded increments the payment counter.
func IncPaymentRecorded(method, result string) {
	if method == "" {
		method = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if paymentsRecorded != nil {
		paymentsRecorded.WithLabelValues(method, result).Inc()
	}
}

// ObserveInvoiceExport records export latency and result.
func ObserveInvoiceExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if invoiceExportTotal != nil {
		invoiceExportTotal.WithLabelValues(format, result).Inc()
	}
	if invoiceExportLatency != nil {
		invoiceExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncEventPublished increments the published event counter.
func IncEventPublished(event, result string) {
	if event == "" {
		event = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if eventsPublished != nil {
		eventsPublished.WithLabelValues(event, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
