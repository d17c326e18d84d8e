// Package metrics exposes Prometheus instrumentation for collection
// downloads, folder rescans and live status observers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Download outcomes
const (
	ResultDownloaded = "downloaded"
	ResultFailed     = "failed"
	ResultManual     = "manual"  // external entry marked manual-only
	ResultBrowser    = "browser" // handed to the website for a non-premium account
	ResultSkipped    = "skipped"
)

// Rescan outcomes per file
const (
	RescanTooSmall  = "too_small"
	RescanMatched   = "matched"
	RescanUnmatched = "unmatched"
	RescanError     = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	DownloadsTotal   *prometheus.CounterVec
	DownloadBytes    prometheus.Counter
	DownloadDuration prometheus.Histogram
	RescanFilesTotal *prometheus.CounterVec
	ActiveObservers  prometheus.Gauge
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them process-wide.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lmm",
			Subsystem: "collection",
			Name:      "downloads_total",
			Help:      "Collection entry downloads, by entry kind and outcome.",
		}, []string{"kind", "result"}),
		DownloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lmm",
			Subsystem: "collection",
			Name:      "download_bytes_total",
			Help:      "Bytes fetched for collection entries.",
		}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lmm",
			Subsystem: "collection",
			Name:      "download_duration_seconds",
			Help:      "Time to fetch, preserve and register one entry.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}),
		RescanFilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lmm",
			Subsystem: "rescan",
			Name:      "files_total",
			Help:      "Files seen by the downloads folder rescan, by outcome.",
		}, []string{"outcome"}),
		ActiveObservers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lmm",
			Subsystem: "collection",
			Name:      "status_observers",
			Help:      "Live status observers.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.DownloadsTotal, m.DownloadBytes, m.DownloadDuration, m.RescanFilesTotal, m.ActiveObservers)
	}
	return m
}

// ObserveDownload records one finished download attempt
func (m *Metrics) ObserveDownload(kind, result string, bytes int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DownloadsTotal.WithLabelValues(kind, result).Inc()
	if result == ResultDownloaded {
		m.DownloadBytes.Add(float64(bytes))
		m.DownloadDuration.Observe(elapsed.Seconds())
	}
}

// ObserveRescan records the outcome for one scanned file
func (m *Metrics) ObserveRescan(outcome string) {
	if m == nil {
		return
	}
	m.RescanFilesTotal.WithLabelValues(outcome).Inc()
}

// ObserverStarted increments the live observer gauge
func (m *Metrics) ObserverStarted() {
	if m == nil {
		return
	}
	m.ActiveObservers.Inc()
}

// ObserverStopped decrements the live observer gauge
func (m *Metrics) ObserverStopped() {
	if m == nil {
		return
	}
	m.ActiveObservers.Dec()
}
