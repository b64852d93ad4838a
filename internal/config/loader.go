// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/adsplice/internal/validate"
)

// Default values. Logo defaults follow the classic layout: a logo one twelfth of
// the frame height at half opacity, circling the frame at double speed.
const (
	DefaultFFmpegBin         = "ffmpeg"
	DefaultFFprobeBin        = "ffprobe"
	DefaultProbeTimeout      = 10 * time.Second
	DefaultKillTimeout       = 5 * time.Second
	DefaultVAAPIDevice       = "/dev/dri/renderD128"
	DefaultMinSeparation     = time.Second
	DefaultInlineConcatLimit = 16
	DefaultLogoRelHeight     = 1.0 / 12.0
	DefaultLogoOpacity       = 0.5
	DefaultLogoSpeed         = 2.0
	DefaultLogoCycle         = 20 * time.Second
	DefaultProgressBuffer    = 16
	DefaultStderrLines       = 20
)

// DefaultHWAccelPreference is the probe order used when a job asks for "auto".
var DefaultHWAccelPreference = []string{"nvenc", "qsv", "vaapi", "videotoolbox", "amf"}

// Environment keys. All carry the ADSPLICE_ prefix.
const (
	EnvLogLevel          = "ADSPLICE_LOG_LEVEL"
	EnvTempDir           = "ADSPLICE_TEMP_DIR"
	EnvFFmpegBin         = "ADSPLICE_FFMPEG_BIN"
	EnvFFprobeBin        = "ADSPLICE_FFPROBE_BIN"
	EnvProbeTimeout      = "ADSPLICE_PROBE_TIMEOUT"
	EnvKillTimeout       = "ADSPLICE_KILL_TIMEOUT"
	EnvVerifyEncoders    = "ADSPLICE_VERIFY_ENCODERS"
	EnvVAAPIDevice       = "ADSPLICE_VAAPI_DEVICE"
	EnvMinSeparation     = "ADSPLICE_MIN_SEPARATION"
	EnvInlineConcatLimit = "ADSPLICE_INLINE_CONCAT_LIMIT"
	EnvHWAccelPreference = "ADSPLICE_HWACCEL_PREFERENCE"
	EnvLogoRelHeight     = "ADSPLICE_LOGO_RELATIVE_HEIGHT"
	EnvLogoOpacity       = "ADSPLICE_LOGO_OPACITY"
	EnvLogoSpeed         = "ADSPLICE_LOGO_SPEED"
	EnvLogoCycle         = "ADSPLICE_LOGO_CYCLE"
	EnvProgressBuffer    = "ADSPLICE_PROGRESS_BUFFER"
	EnvStderrLines       = "ADSPLICE_STDERR_LINES"
	EnvMetricsListen     = "ADSPLICE_METRICS_LISTEN"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // keys read during the last Load
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Load loads configuration with precedence: ENV > File > Defaults
func (l *Loader) Load() (AppConfig, error) {
	cfg := AppConfig{}

	// 1. Set defaults
	l.setDefaults(&cfg)

	// 2. Load from file (if provided)
	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := l.mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	// 3. Override with environment variables (highest priority)
	l.mergeEnvConfig(&cfg)
	if lvl, err := validate.ParseLogLevel(cfg.LogLevel); err == nil {
		cfg.LogLevel = lvl
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) setDefaults(cfg *AppConfig) {
	cfg.Version = l.version
	cfg.LogLevel = "info"
	cfg.TempDir = filepath.Join(os.TempDir(), "adsplice")

	cfg.FFmpeg = FFmpegConfig{
		Bin:            DefaultFFmpegBin,
		FFprobeBin:     DefaultFFprobeBin,
		ProbeTimeout:   DefaultProbeTimeout,
		KillTimeout:    DefaultKillTimeout,
		VerifyEncoders: true,
		VAAPIDevice:    DefaultVAAPIDevice,
	}
	cfg.Timeline.MinSeparation = DefaultMinSeparation
	cfg.Synth = SynthConfig{
		InlineConcatLimit: DefaultInlineConcatLimit,
		HWAccelPreference: append([]string(nil), DefaultHWAccelPreference...),
		Logo: LogoDefaults{
			RelativeHeight: DefaultLogoRelHeight,
			Opacity:        DefaultLogoOpacity,
			Speed:          DefaultLogoSpeed,
			DefaultCycle:   DefaultLogoCycle,
		},
	}
	cfg.Runner = RunnerConfig{
		ProgressBuffer: DefaultProgressBuffer,
		StderrLines:    DefaultStderrLines,
	}
}

// loadFile reads a YAML config strictly: unknown keys and trailing documents are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFileConfig(data)
}

func parseFileConfig(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

// mergeFileConfig applies every non-zero file value on top of dst.
func (l *Loader) mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.TempDir != "" {
		dst.TempDir = expandEnv(src.TempDir)
	}

	if src.FFmpeg.Bin != "" {
		dst.FFmpeg.Bin = expandEnv(src.FFmpeg.Bin)
	}
	if src.FFmpeg.FFprobeBin != "" {
		dst.FFmpeg.FFprobeBin = expandEnv(src.FFmpeg.FFprobeBin)
	}
	if err := mergeDuration(&dst.FFmpeg.ProbeTimeout, src.FFmpeg.ProbeTimeout, "ffmpeg.probeTimeout"); err != nil {
		return err
	}
	if err := mergeDuration(&dst.FFmpeg.KillTimeout, src.FFmpeg.KillTimeout, "ffmpeg.killTimeout"); err != nil {
		return err
	}
	if src.FFmpeg.VerifyEncoders != nil {
		dst.FFmpeg.VerifyEncoders = *src.FFmpeg.VerifyEncoders
	}
	if src.FFmpeg.VAAPIDevice != "" {
		dst.FFmpeg.VAAPIDevice = src.FFmpeg.VAAPIDevice
	}

	if err := mergeDuration(&dst.Timeline.MinSeparation, src.Timeline.MinSeparation, "timeline.minSeparation"); err != nil {
		return err
	}

	if src.Synth.InlineConcatLimit != 0 {
		dst.Synth.InlineConcatLimit = src.Synth.InlineConcatLimit
	}
	if len(src.Synth.HWAccelPreference) > 0 {
		dst.Synth.HWAccelPreference = splitList(strings.Join(src.Synth.HWAccelPreference, ","))
	}
	if src.Synth.Logo.RelativeHeight != 0 {
		dst.Synth.Logo.RelativeHeight = src.Synth.Logo.RelativeHeight
	}
	if src.Synth.Logo.Opacity != nil {
		dst.Synth.Logo.Opacity = *src.Synth.Logo.Opacity
	}
	if src.Synth.Logo.Speed != 0 {
		dst.Synth.Logo.Speed = src.Synth.Logo.Speed
	}
	if err := mergeDuration(&dst.Synth.Logo.DefaultCycle, src.Synth.Logo.DefaultCycle, "synth.logo.defaultCycle"); err != nil {
		return err
	}

	if src.Runner.ProgressBuffer != 0 {
		dst.Runner.ProgressBuffer = src.Runner.ProgressBuffer
	}
	if src.Runner.StderrLines != 0 {
		dst.Runner.StderrLines = src.Runner.StderrLines
	}
	if src.Metrics.ListenAddr != "" {
		dst.Metrics.ListenAddr = src.Metrics.ListenAddr
	}
	return nil
}

func mergeDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}

// Wrapper methods for mechanical connection tracking

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// mergeEnvConfig applies ADSPLICE_* overrides; current values act as defaults.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.TempDir = l.envString(EnvTempDir, cfg.TempDir)

	cfg.FFmpeg.Bin = l.envString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = l.envString(EnvFFprobeBin, cfg.FFmpeg.FFprobeBin)
	cfg.FFmpeg.ProbeTimeout = l.envDuration(EnvProbeTimeout, cfg.FFmpeg.ProbeTimeout)
	cfg.FFmpeg.KillTimeout = l.envDuration(EnvKillTimeout, cfg.FFmpeg.KillTimeout)
	cfg.FFmpeg.VerifyEncoders = l.envBool(EnvVerifyEncoders, cfg.FFmpeg.VerifyEncoders)
	cfg.FFmpeg.VAAPIDevice = l.envString(EnvVAAPIDevice, cfg.FFmpeg.VAAPIDevice)

	cfg.Timeline.MinSeparation = l.envDuration(EnvMinSeparation, cfg.Timeline.MinSeparation)

	cfg.Synth.InlineConcatLimit = l.envInt(EnvInlineConcatLimit, cfg.Synth.InlineConcatLimit)
	cfg.Synth.HWAccelPreference = l.envList(EnvHWAccelPreference, cfg.Synth.HWAccelPreference)
	cfg.Synth.Logo.RelativeHeight = l.envFloat(EnvLogoRelHeight, cfg.Synth.Logo.RelativeHeight)
	cfg.Synth.Logo.Opacity = l.envFloat(EnvLogoOpacity, cfg.Synth.Logo.Opacity)
	cfg.Synth.Logo.Speed = l.envFloat(EnvLogoSpeed, cfg.Synth.Logo.Speed)
	cfg.Synth.Logo.DefaultCycle = l.envDuration(EnvLogoCycle, cfg.Synth.Logo.DefaultCycle)

	cfg.Runner.ProgressBuffer = l.envInt(EnvProgressBuffer, cfg.Runner.ProgressBuffer)
	cfg.Runner.StderrLines = l.envInt(EnvStderrLines, cfg.Runner.StderrLines)
	cfg.Metrics.ListenAddr = l.envString(EnvMetricsListen, cfg.Metrics.ListenAddr)
}
