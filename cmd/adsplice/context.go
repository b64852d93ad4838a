// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ManuGH/adsplice/internal/capability"
	"github.com/ManuGH/adsplice/internal/config"
	"github.com/ManuGH/adsplice/internal/engine"
	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/mediaprobe"
	"github.com/ManuGH/adsplice/internal/runner"
	"github.com/ManuGH/adsplice/internal/synth"
	"github.com/ManuGH/adsplice/internal/timeline"
	"github.com/ManuGH/adsplice/internal/version"
)

// commandContext loads configuration and the engine lazily, once per process.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     config.AppConfig
	configErr  error

	engineOnce sync.Once
	engine     *engine.Engine
	engineErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (config.AppConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.NewLoader(path, version.Version).Load()
		if err != nil {
			c.configErr = fmt.Errorf("config: %w", err)
			return
		}
		log.Configure(log.Config{
			Level:   cfg.LogLevel,
			Service: "adsplice",
			Version: cfg.Version,
		})
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureEngine() (*engine.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.engineOnce.Do(func() {
		c.engine, c.engineErr = engine.New(engineConfig(cfg))
	})
	return c.engine, c.engineErr
}

// engineConfig maps the validated application config onto the components.
func engineConfig(cfg config.AppConfig) engine.Config {
	prefs := make([]capability.Backend, 0, len(cfg.Synth.HWAccelPreference))
	for _, name := range cfg.Synth.HWAccelPreference {
		if b, ok := capability.ParseBackend(name); ok {
			prefs = append(prefs, b)
		}
	}
	return engine.Config{
		TempDir: cfg.TempDir,
		Probe: capability.Config{
			Bin:            cfg.FFmpeg.Bin,
			Timeout:        cfg.FFmpeg.ProbeTimeout,
			TrustListing:   !cfg.FFmpeg.VerifyEncoders,
			VAAPIDevice:    cfg.FFmpeg.VAAPIDevice,
		},
		Media: mediaprobe.Config{
			Bin:     cfg.FFmpeg.FFprobeBin,
			Timeout: cfg.FFmpeg.ProbeTimeout,
		},
		Timeline: timeline.Config{
			MinSeparation: cfg.Timeline.MinSeparation,
			Logo: timeline.LogoDefaults{
				RelativeHeight: cfg.Synth.Logo.RelativeHeight,
				Opacity:        cfg.Synth.Logo.Opacity,
				Speed:          cfg.Synth.Logo.Speed,
				DefaultCycle:   cfg.Synth.Logo.DefaultCycle,
			},
		},
		Synth: synth.Config{
			FFmpegBin:         cfg.FFmpeg.Bin,
			InlineConcatLimit: cfg.Synth.InlineConcatLimit,
			HWAccelPreference: prefs,
			VAAPIDevice:       cfg.FFmpeg.VAAPIDevice,
		},
		Runner: runner.Config{
			KillTimeout:    cfg.FFmpeg.KillTimeout,
			ProgressBuffer: cfg.Runner.ProgressBuffer,
			StderrLines:    cfg.Runner.StderrLines,
		},
	}
}
