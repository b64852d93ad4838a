// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/adsplice/internal/validate"
)

var knownBackends = []string{"nvenc", "qsv", "vaapi", "videotoolbox", "amf"}

// Validate checks a resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", "must be one of trace, debug, info, warn, error", cfg.LogLevel)
	}
	v.Directory("tempDir", cfg.TempDir, false)

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.NotEmpty("ffmpeg.ffprobeBin", cfg.FFmpeg.FFprobeBin)
	v.PositiveDuration("ffmpeg.probeTimeout", cfg.FFmpeg.ProbeTimeout)
	v.PositiveDuration("ffmpeg.killTimeout", cfg.FFmpeg.KillTimeout)

	if cfg.Timeline.MinSeparation < 0 {
		v.AddError("timeline.minSeparation", "cannot be negative", cfg.Timeline.MinSeparation)
	}

	v.Range("synth.inlineConcatLimit", cfg.Synth.InlineConcatLimit, 2, 256)
	for _, b := range cfg.Synth.HWAccelPreference {
		v.OneOf("synth.hwaccelPreference", b, knownBackends)
	}
	v.FloatRange("synth.logo.relativeHeight", cfg.Synth.Logo.RelativeHeight, 0.01, 1)
	v.FloatRange("synth.logo.opacity", cfg.Synth.Logo.Opacity, 0, 1)
	if cfg.Synth.Logo.Speed <= 0 {
		v.AddError("synth.logo.speed", "must be positive", cfg.Synth.Logo.Speed)
	}
	v.PositiveDuration("synth.logo.defaultCycle", cfg.Synth.Logo.DefaultCycle)

	v.Range("runner.progressBuffer", cfg.Runner.ProgressBuffer, 1, 4096)
	v.Range("runner.stderrLines", cfg.Runner.StderrLines, 1, 1024)

	return v.Err()
}
