// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instruments for probing, planning and runs.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_capability_probe_total",
		Help: "Total number of capability probes by result",
	}, []string{"result"})

	backendsDetected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adsplice_capability_backends",
		Help: "Number of hardware backends reported by the last probe",
	})

	planTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_plan_total",
		Help: "Total number of command plans by result and graph mode",
	}, []string{"result", "mode"})

	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_encoder_fallback_total",
		Help: "Total number of software encoder fallbacks by requested backend and reason",
	}, []string{"requested", "reason"})
)

// RecordProbe records the result of one capability probe.
func RecordProbe(ok bool, backends int) {
	result := "ok"
	if !ok {
		result = "unavailable"
	}
	probeTotal.WithLabelValues(result).Inc()
	backendsDetected.Set(float64(backends))
}

// RecordPlan records one synthesis attempt.
func RecordPlan(result, mode string) {
	planTotal.WithLabelValues(normalizePlanResult(result), normalizeMode(mode)).Inc()
}

// RecordFallback records a software fallback for a requested hardware backend.
func RecordFallback(requested, reason string) {
	fallbackTotal.WithLabelValues(normalizeBackend(requested), normalizeFallbackReason(reason)).Inc()
}

func normalizePlanResult(result string) string {
	switch r := strings.ToLower(strings.TrimSpace(result)); r {
	case "ok", "conflict", "unsupported", "invalid", "error":
		return r
	default:
		return "error"
	}
}

func normalizeMode(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case "transcode", "splice", "overlay", "splice_overlay":
		return m
	default:
		return "unknown"
	}
}

func normalizeBackend(b string) string {
	switch v := strings.ToLower(strings.TrimSpace(b)); v {
	case "nvenc", "qsv", "vaapi", "videotoolbox", "amf", "auto":
		return v
	default:
		return "other"
	}
}

func normalizeFallbackReason(reason string) string {
	switch r := strings.ToLower(strings.TrimSpace(reason)); r {
	case "backend_unavailable", "codec_unsupported", "no_hw_detected":
		return r
	default:
		return "unknown"
	}
}
