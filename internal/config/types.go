// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads engine settings with ENV > file > defaults precedence.
package config

import "time"

// AppConfig is the resolved, validated engine configuration.
type AppConfig struct {
	Version  string
	LogLevel string
	TempDir  string

	FFmpeg   FFmpegConfig
	Timeline TimelineConfig
	Synth    SynthConfig
	Runner   RunnerConfig
	Metrics  MetricsConfig
}

// FFmpegConfig locates the external tools and bounds their probing.
type FFmpegConfig struct {
	Bin            string
	FFprobeBin     string
	ProbeTimeout   time.Duration
	KillTimeout    time.Duration
	VerifyEncoders bool   // test-encode each listed hardware encoder before trusting it; on by default
	VAAPIDevice    string // render node used for vaapi encoding
}

// TimelineConfig tunes conflict detection.
type TimelineConfig struct {
	MinSeparation time.Duration
}

// SynthConfig tunes command synthesis.
type SynthConfig struct {
	InlineConcatLimit int
	HWAccelPreference []string
	Logo              LogoDefaults
}

// LogoDefaults apply when a moving logo leaves a field unset.
type LogoDefaults struct {
	RelativeHeight float64
	Opacity        float64
	Speed          float64
	DefaultCycle   time.Duration
}

// RunnerConfig tunes process supervision.
type RunnerConfig struct {
	ProgressBuffer int
	StderrLines    int
}

// MetricsConfig controls the optional Prometheus endpoint of the CLI.
type MetricsConfig struct {
	ListenAddr string
}

// FileConfig mirrors the YAML layout. Durations are Go duration strings.
type FileConfig struct {
	LogLevel string `yaml:"logLevel,omitempty"`
	TempDir  string `yaml:"tempDir,omitempty"`

	FFmpeg struct {
		Bin            string `yaml:"bin,omitempty"`
		FFprobeBin     string `yaml:"ffprobeBin,omitempty"`
		ProbeTimeout   string `yaml:"probeTimeout,omitempty"`
		KillTimeout    string `yaml:"killTimeout,omitempty"`
		VerifyEncoders *bool  `yaml:"verifyEncoders,omitempty"`
		VAAPIDevice    string `yaml:"vaapiDevice,omitempty"`
	} `yaml:"ffmpeg,omitempty"`

	Timeline struct {
		MinSeparation string `yaml:"minSeparation,omitempty"`
	} `yaml:"timeline,omitempty"`

	Synth struct {
		InlineConcatLimit int      `yaml:"inlineConcatLimit,omitempty"`
		HWAccelPreference []string `yaml:"hwaccelPreference,omitempty"`
		Logo              struct {
			RelativeHeight float64  `yaml:"relativeHeight,omitempty"`
			Opacity        *float64 `yaml:"opacity,omitempty"`
			Speed          float64  `yaml:"speed,omitempty"`
			DefaultCycle   string   `yaml:"defaultCycle,omitempty"`
		} `yaml:"logo,omitempty"`
	} `yaml:"synth,omitempty"`

	Runner struct {
		ProgressBuffer int `yaml:"progressBuffer,omitempty"`
		StderrLines    int `yaml:"stderrLines,omitempty"`
	} `yaml:"runner,omitempty"`

	Metrics struct {
		ListenAddr string `yaml:"listenAddr,omitempty"`
	} `yaml:"metrics,omitempty"`
}
