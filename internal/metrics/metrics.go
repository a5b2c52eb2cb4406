package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipratemanager_requests_total",
			Help: "Total number of API requests per path",
		},
		[]string{"path"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shipratemanager_request_duration_seconds",
			Help:    "Request duration in seconds per path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipratemanager_request_errors_total",
			Help: "Total number of error responses per path and status code",
		},
		[]string{"path", "code"},
	)
)

var (
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipratemanager_refreshes_total",
			Help: "Refresh runs by outcome (skipped, refreshed, failed)",
		},
		[]string{"outcome"},
	)

	DownloadFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shipratemanager_download_failures_total",
			Help: "Downloads that returned a non-200 status",
		},
	)

	RemoteUnavailableTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shipratemanager_remote_unavailable_total",
			Help: "Remote inspections that returned a non-200 status",
		},
	)

	ExtractedRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipratemanager_extracted_rows",
			Help: "Number of rows extracted by the last refresh",
		},
	)

	DocumentLastChanged = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shipratemanager_document_last_changed_timestamp",
			Help: "Unix timestamp of the source document's Last-Modified header",
		},
	)
)

var (
	DBPoolTotalConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipratemanager_db_pool_total_conns",
			Help: "Total number of connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipratemanager_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolAcquiredConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipratemanager_db_pool_acquired_conns",
			Help: "Currently acquired (in-use) connections per driver",
		},
		[]string{"driver"},
	)
)

func UpdateDBPoolMetrics(driver string, total, idle, acquired float64) {
	DBPoolTotalConns.WithLabelValues(driver).Set(total)
	DBPoolIdleConns.WithLabelValues(driver).Set(idle)
	DBPoolAcquiredConns.WithLabelValues(driver).Set(acquired)
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipratemanager_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shipratemanager_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shipratemanager_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
