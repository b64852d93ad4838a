// SPDX-License-Identifier: MIT

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ffmpegStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_ffmpeg_start_total",
		Help: "Total number of ffmpeg process starts",
	}, []string{"result"})

	ffmpegExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_ffmpeg_exit_total",
		Help: "Total number of ffmpeg runs by outcome",
	}, []string{"outcome"})

	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_proc_terminate_total",
		Help: "Signals sent to process groups by signal and result",
	}, []string{"signal", "result"})

	artifactsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "adsplice_temp_artifacts_live",
		Help: "Number of allocated temp artifacts not yet released",
	})

	artifactCleanupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adsplice_temp_artifact_cleanup_total",
		Help: "Temp artifact removals by result",
	}, []string{"result"})
)

// RecordStart records an ffmpeg launch attempt.
func RecordStart(ok bool) {
	if ok {
		ffmpegStartTotal.WithLabelValues("ok").Inc()
		return
	}
	ffmpegStartTotal.WithLabelValues("error").Inc()
}

// RecordOutcome records the terminal state of a run.
func RecordOutcome(outcome string) {
	switch o := strings.ToLower(outcome); o {
	case "completed", "cancelled", "failed":
		ffmpegExitTotal.WithLabelValues(o).Inc()
	default:
		ffmpegExitTotal.WithLabelValues("unknown").Inc()
	}
}

// IncProcTerminate counts a signal delivery attempt to a process group.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// ArtifactAllocated tracks a newly reserved temp artifact.
func ArtifactAllocated() { artifactsLive.Inc() }

// ArtifactReleased tracks removal of a temp artifact.
func ArtifactReleased(ok bool) {
	artifactsLive.Dec()
	if ok {
		artifactCleanupTotal.WithLabelValues("ok").Inc()
		return
	}
	artifactCleanupTotal.WithLabelValues("error").Inc()
}
