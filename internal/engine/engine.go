// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine composes probing, timeline resolution, synthesis and
// execution behind one facade. It runs at most one job at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/artifact"
	"github.com/ManuGH/adsplice/internal/capability"
	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/mediaprobe"
	"github.com/ManuGH/adsplice/internal/metrics"
	"github.com/ManuGH/adsplice/internal/runner"
	"github.com/ManuGH/adsplice/internal/synth"
	"github.com/ManuGH/adsplice/internal/timeline"
)

var (
	// ErrJobActive is returned by Run while another job is still running.
	ErrJobActive = errors.New("engine: a job is already running")
	// ErrInvalidJob wraps field validation failures of a job description.
	ErrInvalidJob = errors.New("engine: invalid job")
)

// CapabilitySource yields the session's capability set.
type CapabilitySource interface {
	Capabilities(ctx context.Context) capability.Set
}

// MediaFiller completes unknown media facts of a job in place.
type MediaFiller interface {
	Fill(ctx context.Context, j *job.Description)
}

// Config wires the components. Zero values take each component's defaults.
type Config struct {
	TempDir  string
	Probe    capability.Config
	Media    mediaprobe.Config
	Timeline timeline.Config
	Synth    synth.Config
	Runner   runner.Config
}

// Engine is safe for concurrent use.
type Engine struct {
	caps      CapabilitySource
	media     MediaFiller // nil skips media probing
	resolver  *timeline.Resolver
	synth     *synth.Synthesizer
	runner    *runner.Runner
	artifacts *artifact.Manager
	logger    zerolog.Logger

	mu     sync.Mutex
	active *runner.Run
}

// Option overrides a collaborator, mainly for tests.
type Option func(*Engine)

// WithCapabilities replaces the probing session.
func WithCapabilities(c CapabilitySource) Option {
	return func(e *Engine) { e.caps = c }
}

// WithMediaFiller replaces the ffprobe based filler. nil disables it.
func WithMediaFiller(m MediaFiller) Option {
	return func(e *Engine) { e.media = m }
}

// New builds an engine. Probing is lazy: nothing runs until the first
// Prepare or Capabilities call.
func New(cfg Config, opts ...Option) (*Engine, error) {
	arts, err := artifact.NewManager(cfg.TempDir)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		caps:      capability.NewSession(capability.NewProber(cfg.Probe)),
		media:     mediaprobe.New(cfg.Media, nil),
		resolver:  timeline.NewResolver(cfg.Timeline),
		synth:     synth.New(cfg.Synth),
		runner:    runner.New(cfg.Runner),
		artifacts: arts,
		logger:    log.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Capabilities returns the session's capability set, probing once.
func (e *Engine) Capabilities(ctx context.Context) capability.Set {
	return e.caps.Capabilities(ctx)
}

// Artifacts exposes the temp artifact manager.
func (e *Engine) Artifacts() *artifact.Manager { return e.artifacts }

// Prepare validates d, resolves its timeline and synthesizes the command.
// d is cloned first and never modified. Nothing is launched; on failure no
// artifact survives. A plan that will not be run must be passed to Discard.
func (e *Engine) Prepare(ctx context.Context, d *job.Description) (*synth.CommandPlan, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil description", ErrInvalidJob)
	}
	j := d.Clone()
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	ctx = log.ContextWithJobID(ctx, j.ID)
	logger := log.WithContext(ctx, e.logger)

	if err := j.Validate(); err != nil {
		metrics.RecordPlan("invalid", "")
		return nil, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if e.media != nil {
		e.media.Fill(ctx, j)
	}

	tl, err := e.resolver.Resolve(ctx, j.Ads, j.Banners, j.Logo, j.SourceInfo.Duration)
	if err != nil {
		if errors.Is(err, timeline.ErrUnknownAdDuration) {
			metrics.RecordPlan("unsupported", "")
			logger.Warn().Err(err).Msg("banner placement needs ad durations")
			return nil, fmt.Errorf("%w: %w", synth.ErrUnsupportedConfiguration, err)
		}
		metrics.RecordPlan("conflict", "")
		logger.Warn().Err(err).Msg("timeline rejected")
		return nil, err
	}

	scope := e.artifacts.Scope(j.ID)
	plan, err := e.synth.Synthesize(ctx, synth.Input{
		Job:          j,
		Timeline:     tl,
		Capabilities: e.caps.Capabilities(ctx),
		Artifacts:    scope,
	})
	if err != nil {
		scope.Release()
		logger.Warn().Err(err).Msg("synthesis failed")
		return nil, err
	}
	for _, w := range plan.Warnings {
		logger.Warn().Str(log.FieldEvent, "plan.warning").Msg(w)
	}
	return plan, nil
}

// Run starts plan. It fails with ErrJobActive while a previous run is still
// going. The plan's artifacts are released when the run ends, or right away
// if it cannot be started.
func (e *Engine) Run(ctx context.Context, plan *synth.CommandPlan) (*runner.Run, error) {
	if plan == nil {
		return nil, errors.New("engine: nil plan")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		select {
		case <-e.active.Done():
		default:
			return nil, ErrJobActive
		}
	}

	jobID := plan.JobID
	run, err := e.runner.Start(ctx, plan, func() { e.artifacts.ReleaseAll(jobID) })
	if err != nil {
		e.artifacts.ReleaseAll(jobID)
		return nil, err
	}
	e.active = run
	return run, nil
}

// Cancel stops the active run, if any. Repeated calls are harmless.
func (e *Engine) Cancel() {
	e.mu.Lock()
	run := e.active
	e.mu.Unlock()
	if run != nil {
		run.Cancel()
	}
}

// Discard releases the artifacts of a plan that will not be run.
func (e *Engine) Discard(plan *synth.CommandPlan) {
	if plan == nil {
		return
	}
	e.artifacts.ReleaseAll(plan.JobID)
}
