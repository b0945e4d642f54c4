// Package metrics defines the Prometheus metrics for both processes and a
// standalone server exposing them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidgrab_sessions_active",
			Help: "Number of live selection sessions",
		},
	)

	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidgrab_sessions_evicted_total",
			Help: "Total number of sessions removed by TTL or capacity eviction",
		},
	)

	// Download metrics
	DownloadsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidgrab_downloads_started_total",
			Help: "Total number of download orchestrations started",
		},
		[]string{"format"},
	)

	DownloadsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidgrab_downloads_completed_total",
			Help: "Total number of finished download orchestrations",
		},
		[]string{"format", "status"},
	)

	DownloadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vidgrab_downloads_in_flight",
			Help: "Number of orchestrations currently running",
		},
	)

	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidgrab_download_duration_seconds",
			Help:    "End-to-end orchestration duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"format"},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vidgrab_upload_size_bytes",
			Help:    "Size of files re-uploaded to the storage channel in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 12), // 1MB to 2GB
		},
	)

	// Metadata metrics
	MetadataFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidgrab_metadata_fetches_total",
			Help: "Total number of metadata fetches against the extraction backend",
		},
		[]string{"result"},
	)

	MetadataCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vidgrab_metadata_cache_hits_total",
			Help: "Metadata requests served from the Redis cache",
		},
	)

	// Event bus metrics (reporting process)
	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidgrab_events_consumed_total",
			Help: "Lifecycle events consumed from the event bus",
		},
		[]string{"event"},
	)
)
