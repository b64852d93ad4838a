// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counterVec.WithLabelValues(labels...).Write(metric))
	return metric.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func TestRecordPlan_NormalizesLabels(t *testing.T) {
	before := getCounterVecValue(t, planTotal, "error", "unknown")
	RecordPlan("exploded", "mystery")
	assert.Equal(t, before+1, getCounterVecValue(t, planTotal, "error", "unknown"))

	before = getCounterVecValue(t, planTotal, "ok", "splice_overlay")
	RecordPlan("OK", "splice_overlay")
	assert.Equal(t, before+1, getCounterVecValue(t, planTotal, "ok", "splice_overlay"))
}

func TestRecordFallback(t *testing.T) {
	before := getCounterVecValue(t, fallbackTotal, "nvenc", "backend_unavailable")
	RecordFallback("NVENC", "backend_unavailable")
	assert.Equal(t, before+1, getCounterVecValue(t, fallbackTotal, "nvenc", "backend_unavailable"))

	before = getCounterVecValue(t, fallbackTotal, "other", "unknown")
	RecordFallback("cuda", "whatever")
	assert.Equal(t, before+1, getCounterVecValue(t, fallbackTotal, "other", "unknown"))
}

func TestRecordProbe(t *testing.T) {
	before := getCounterVecValue(t, probeTotal, "unavailable")
	RecordProbe(false, 0)
	assert.Equal(t, before+1, getCounterVecValue(t, probeTotal, "unavailable"))
	assert.Zero(t, getGaugeValue(t, backendsDetected))

	RecordProbe(true, 2)
	assert.Equal(t, 2.0, getGaugeValue(t, backendsDetected))
}

func TestRecordOutcome(t *testing.T) {
	before := getCounterVecValue(t, ffmpegExitTotal, "cancelled")
	RecordOutcome("Cancelled")
	assert.Equal(t, before+1, getCounterVecValue(t, ffmpegExitTotal, "cancelled"))
}

func TestArtifactGauge(t *testing.T) {
	before := getGaugeValue(t, artifactsLive)
	errBefore := getCounterVecValue(t, artifactCleanupTotal, "error")

	ArtifactAllocated()
	ArtifactAllocated()
	assert.Equal(t, before+2, getGaugeValue(t, artifactsLive))

	ArtifactReleased(true)
	ArtifactReleased(false)
	assert.Equal(t, before, getGaugeValue(t, artifactsLive))
	assert.Equal(t, errBefore+1, getCounterVecValue(t, artifactCleanupTotal, "error"))
}
