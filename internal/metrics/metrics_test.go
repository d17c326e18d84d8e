package metrics_test

import (
	"testing"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveDownload(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := metrics.New(reg)

	m.ObserveDownload("nexus", metrics.ResultDownloaded, 2048, time.Second)
	m.ObserveDownload("external", metrics.ResultManual, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsTotal.WithLabelValues("nexus", metrics.ResultDownloaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DownloadsTotal.WithLabelValues("external", metrics.ResultManual)))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.DownloadBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DownloadDuration))
}

func TestMetrics_RescanAndObservers(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	m.ObserveRescan(metrics.RescanMatched)
	m.ObserveRescan(metrics.RescanMatched)
	m.ObserveRescan(metrics.RescanTooSmall)
	m.ObserverStarted()
	m.ObserverStarted()
	m.ObserverStopped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RescanFilesTotal.WithLabelValues(metrics.RescanMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RescanFilesTotal.WithLabelValues(metrics.RescanTooSmall)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveObservers))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveDownload("nexus", metrics.ResultFailed, 0, 0)
		m.ObserveRescan(metrics.RescanError)
		m.ObserverStarted()
		m.ObserverStopped()
	})
}
