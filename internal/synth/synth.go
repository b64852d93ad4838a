// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package synth turns a resolved timeline and a job description into a
// complete ffmpeg invocation.
//
// Synthesis is pure: identical inputs and capabilities yield byte-identical
// argument lists. The only side effect is writing a concat list through the
// caller's artifact scope when a splice is too long for an inline graph.
package synth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/artifact"
	"github.com/ManuGH/adsplice/internal/capability"
	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/metrics"
	"github.com/ManuGH/adsplice/internal/timeline"
)

const (
	defaultBinary            = "ffmpeg"
	defaultInlineConcatLimit = 16
	defaultAudioCodec        = "aac"
	defaultAudioBitrate      = "192k"
)

// DefaultHWAccelPreference is the order auto mode tries hardware backends in.
var DefaultHWAccelPreference = []capability.Backend{
	capability.BackendNVENC,
	capability.BackendQSV,
	capability.BackendVAAPI,
	capability.BackendVideoToolbox,
	capability.BackendAMF,
}

// Config tunes the synthesizer. Zero values take defaults.
type Config struct {
	FFmpegBin         string
	InlineConcatLimit int // max spliced segments joined inside the filter graph
	HWAccelPreference []capability.Backend
	VAAPIDevice       string
	AudioCodec        string
	AudioBitrate      string
}

// ArtifactScope reserves and writes temp files for one job.
// *artifact.Scope implements it.
type ArtifactScope interface {
	JobID() string
	Allocate(kind artifact.Kind, ext string) (artifact.Artifact, error)
	WriteFile(a artifact.Artifact, data []byte) error
}

// Input is everything one synthesis needs.
type Input struct {
	Job          *job.Description
	Timeline     *timeline.Normalized
	Capabilities capability.Set
	Artifacts    ArtifactScope // only used for long splices
}

// Synthesizer builds CommandPlans. It holds no per-job state and is safe for
// concurrent use.
type Synthesizer struct {
	cfg    Config
	logger zerolog.Logger
}

// New returns a synthesizer with defaults applied to cfg.
func New(cfg Config) *Synthesizer {
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = defaultBinary
	}
	if cfg.InlineConcatLimit <= 0 {
		cfg.InlineConcatLimit = defaultInlineConcatLimit
	}
	if len(cfg.HWAccelPreference) == 0 {
		cfg.HWAccelPreference = DefaultHWAccelPreference
	}
	if cfg.VAAPIDevice == "" {
		cfg.VAAPIDevice = "/dev/dri/renderD128"
	}
	if cfg.AudioCodec == "" {
		cfg.AudioCodec = defaultAudioCodec
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = defaultAudioBitrate
	}
	return &Synthesizer{cfg: cfg, logger: log.WithComponent("synth")}
}

// Synthesize builds the command for in. Failures wrap ErrUnsupportedConfiguration
// when the request cannot be expressed, and nothing is launched either way.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (plan *CommandPlan, err error) {
	if in.Job == nil || in.Timeline == nil {
		return nil, errors.New("synth: job and timeline are required")
	}
	mode := modeOf(in.Timeline)
	defer func() {
		switch {
		case err == nil:
			metrics.RecordPlan("ok", mode)
		case errors.Is(err, ErrUnsupportedConfiguration):
			metrics.RecordPlan("unsupported", mode)
		default:
			metrics.RecordPlan("error", mode)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := log.WithContext(ctx, s.logger)

	enc, err := s.selectEncoder(in.Job.Encoding, in.Capabilities)
	if err != nil {
		return nil, err
	}

	b := newBuilder(s.cfg, in, enc, mode)
	if err := b.build(); err != nil {
		return nil, err
	}
	plan = b.plan

	ev := logger.Debug()
	if plan.FallbackApplied {
		ev = logger.Warn().Str("reason", plan.FallbackReason)
	}
	ev.Str(log.FieldEncoder, plan.Encoder).
		Str(log.FieldBackend, backendLabel(plan.Backend)).
		Bool("fallback", plan.FallbackApplied).
		Str("mode", plan.Mode).
		Int("inputs", len(plan.Inputs)).
		Int("warnings", len(plan.Warnings)).
		Msg("command synthesized")
	return plan, nil
}

func modeOf(tl *timeline.Normalized) string {
	if tl == nil {
		return ModeTranscode
	}
	switch {
	case tl.HasSplices() && tl.HasOverlays():
		return ModeSpliceOverlay
	case tl.HasSplices():
		return ModeSplice
	case tl.HasOverlays():
		return ModeOverlay
	default:
		return ModeTranscode
	}
}

func backendLabel(b capability.Backend) string {
	if b == capability.BackendNone {
		return "software"
	}
	return string(b)
}

// builder accumulates one plan. It is discarded after build.
type builder struct {
	cfg  Config
	job  *job.Description
	tl   *timeline.Normalized
	caps capability.Set
	enc  encoderChoice
	arts ArtifactScope
	plan *CommandPlan

	inputOpts [][]string
	byPath    map[string]int
	filters   []string

	width, height int
	explicitSize  bool
	fps           float64
	container     string
	audio         bool // source audio is expected in the output
	audioFiltered bool // audio passes through the filter graph
}

func newBuilder(cfg Config, in Input, enc encoderChoice, mode string) *builder {
	j := in.Job
	b := &builder{
		cfg:    cfg,
		job:    j,
		tl:     in.Timeline,
		caps:   in.Capabilities,
		enc:    enc,
		arts:   in.Artifacts,
		byPath: make(map[string]int),
		audio:  j.HasAudio(),
		plan: &CommandPlan{
			JobID:            j.ID,
			Binary:           cfg.FFmpegBin,
			OutputPath:       j.Output,
			Mode:             mode,
			Encoder:          enc.encoder,
			Backend:          enc.backend,
			FallbackApplied:  enc.fallback,
			FallbackReason:   enc.reason,
			ExpectedDuration: in.Timeline.OutputDuration,
		},
	}
	b.plan.Warnings = append(b.plan.Warnings, in.Timeline.Warnings...)
	b.plan.Warnings = append(b.plan.Warnings, enc.warnings...)

	p := j.Encoding
	switch {
	case p.Width > 0 && p.Height > 0:
		b.width, b.height, b.explicitSize = p.Width, p.Height, true
	case j.SourceInfo.Width > 0 && j.SourceInfo.Height > 0:
		b.width, b.height = j.SourceInfo.Width, j.SourceInfo.Height
	}
	b.fps = p.FrameRate
	if b.fps <= 0 {
		b.fps = j.SourceInfo.FrameRate
	}
	b.container = containerOf(p.Container, j.Output)
	return b
}

func (b *builder) warnf(format string, args ...any) {
	b.plan.Warnings = append(b.plan.Warnings, fmt.Sprintf(format, args...))
}

func (b *builder) build() error {
	var (
		video string // output video: a graph label or a plain -map argument
		audio []string
		err   error
	)

	switch {
	case b.tl.HasSplices() && len(splicePieces(b.tl)) > b.cfg.InlineConcatLimit:
		if err = b.addConcatListInput(); err != nil {
			return err
		}
		video, audio = "0:v:0", nil
		if b.audio {
			audio = []string{"0:a:0"}
		}
	case b.tl.HasSplices():
		b.addSource()
		video, audio, err = b.spliceInline()
		if err != nil {
			return err
		}
	default:
		b.addSource()
		video = "0:v:0"
	}

	if b.plan.Mode != ModeTranscode {
		video = b.composeOverlays(video)
	}

	streams := b.mapStreams(video, audio)
	b.assemble(streams)
	return nil
}

// assemble writes the final argv in a fixed order.
func (b *builder) assemble(streams []outStream) {
	args := []string{"-hide_banner", "-nostdin", "-y", "-loglevel", "error"}
	if b.enc.backend == capability.BackendVAAPI {
		args = append(args, "-init_hw_device", "vaapi=va:"+b.cfg.VAAPIDevice, "-filter_hw_device", "va")
	}
	for i, ref := range b.plan.Inputs {
		args = append(args, b.inputOpts[i]...)
		args = append(args, "-i", ref.Path)
	}

	if len(b.filters) > 0 {
		b.plan.FilterGraph = strings.Join(b.filters, ";")
		args = append(args, "-filter_complex", b.plan.FilterGraph)
	} else if vf := b.pureVideoFilter(); vf != "" {
		args = append(args, "-vf", vf)
	}

	for _, st := range streams {
		args = append(args, "-map", st.mapArg)
	}
	args = append(args, b.videoCodecArgs()...)
	args = append(args, b.audioCodecArgs(streams)...)
	args = append(args, b.subtitleCodecArgs(streams)...)
	args = append(args, b.metadataArgs(streams)...)

	if b.container == "mp4" || b.container == "mov" {
		args = append(args, "-movflags", "+faststart+use_metadata_tags")
	}
	if b.plan.ExpectedDuration > 0 {
		args = append(args, "-t", timeline.Secs(b.plan.ExpectedDuration))
	}
	args = append(args, b.job.Encoding.ExtraArgs...)
	args = append(args, "-progress", "pipe:1", "-nostats")
	if f := muxerOf(b.job.Encoding.Container); f != "" {
		args = append(args, "-f", f)
	}
	args = append(args, b.job.Output)
	b.plan.Args = args
}

// pureVideoFilter returns the -vf chain of a graph-free transcode.
func (b *builder) pureVideoFilter() string {
	var parts []string
	if b.explicitSize {
		parts = append(parts, fmt.Sprintf("scale=%d:%d", b.width, b.height))
	}
	if b.enc.backend == capability.BackendVAAPI {
		parts = append(parts, "format=nv12", "hwupload")
	}
	return strings.Join(parts, ",")
}

// finalFormat is the last filter before the encoder.
func (b *builder) finalFormat() string {
	switch b.enc.backend {
	case capability.BackendVAAPI:
		return "format=nv12,hwupload"
	case capability.BackendQSV:
		return "format=nv12"
	default:
		return "format=yuv420p"
	}
}

// containerOf names the output container family, from the explicit setting
// or the output extension.
func containerOf(explicit, output string) string {
	c := strings.ToLower(strings.TrimSpace(explicit))
	if c == "" {
		c = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
	}
	switch c {
	case "mp4", "m4v":
		return "mp4"
	case "mov", "qt":
		return "mov"
	case "mkv", "matroska":
		return "mkv"
	default:
		return c
	}
}

// muxerOf maps an explicit container setting to an ffmpeg -f value.
func muxerOf(explicit string) string {
	switch c := strings.ToLower(strings.TrimSpace(explicit)); c {
	case "":
		return ""
	case "mkv", "matroska":
		return "matroska"
	case "m4v":
		return "mp4"
	case "qt":
		return "mov"
	default:
		return c
	}
}
