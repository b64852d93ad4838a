// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/metrics"
)

// ErrProbeUnavailable marks a probe that could not inspect the ffmpeg build.
// It is logged, never returned: callers get an empty Set instead.
var ErrProbeUnavailable = errors.New("capability probe unavailable")

// Commander runs a command and returns its stdout.
type Commander interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommander struct{}

func (execCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- binary path is trusted from config
	return exec.CommandContext(ctx, name, args...).Output()
}

// Config configures a Prober.
type Config struct {
	Bin            string
	Timeout        time.Duration
	TrustListing   bool // skip the test encode and accept every listed encoder
	VAAPIDevice    string
}

// Prober inspects the ffmpeg binary for hardware encoders.
type Prober struct {
	cfg    Config
	cmd    Commander
	logger zerolog.Logger
}

// NewProber creates a prober that shells out to cfg.Bin.
func NewProber(cfg Config) *Prober {
	return newProber(cfg, execCommander{})
}

func newProber(cfg Config, cmd Commander) *Prober {
	if cfg.Bin == "" {
		cfg.Bin = "ffmpeg"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Prober{cfg: cfg, cmd: cmd, logger: log.WithComponent("capability")}
}

// Probe lists encoders and hwaccels. Any failure yields the empty Set.
func (p *Prober) Probe(ctx context.Context) Set {
	logger := log.WithContext(ctx, p.logger)

	encOut, err := p.run(ctx, "-hide_banner", "-encoders")
	if err != nil {
		logger.Warn().Err(fmt.Errorf("%w: %v", ErrProbeUnavailable, err)).Str("bin", p.cfg.Bin).
			Msg("capability probe: ffmpeg -encoders failed, assuming software only")
		metrics.RecordProbe(false, 0)
		return Set{}
	}
	encoders, err := parseEncoders(encOut)
	if err != nil {
		logger.Warn().Err(fmt.Errorf("%w: %v", ErrProbeUnavailable, err)).
			Msg("capability probe: unparsable encoder listing, assuming software only")
		metrics.RecordProbe(false, 0)
		return Set{}
	}

	// hwaccels are informational; a failure here does not void the encoder list
	var hwaccels []string
	if out, err := p.run(ctx, "-hide_banner", "-hwaccels"); err != nil {
		logger.Debug().Err(err).Msg("capability probe: ffmpeg -hwaccels failed")
	} else {
		hwaccels = parseHWAccels(out)
	}

	set := NewSet(encoders, hwaccels)
	if !p.cfg.TrustListing {
		set = p.verify(ctx, logger, set)
	}

	backends := set.Backends()
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = string(b)
	}
	logger.Info().Strs("backends", names).Strs("hwaccels", hwaccels).Int("encoders", len(encoders)).
		Msg("capability probe: complete")
	metrics.RecordProbe(true, len(backends))
	return set
}

func (p *Prober) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.cmd.Output(ctx, p.cfg.Bin, args...)
}

// verify runs a 5-frame test encode per backend and drops the ones that fail.
func (p *Prober) verify(ctx context.Context, logger zerolog.Logger, set Set) Set {
	for _, b := range set.Backends() {
		enc := ""
		for _, c := range []Codec{CodecH264, CodecHEVC, CodecAV1} {
			if e, ok := HardwareEncoder(c, b); ok && set.HasEncoder(e) {
				enc = e
				break
			}
		}
		if enc == "" {
			continue
		}
		if err := p.testEncoder(ctx, b, enc); err != nil {
			logger.Warn().Err(err).Str(log.FieldBackend, string(b)).Str(log.FieldEncoder, enc).
				Msg("capability probe: encoder test failed, backend disabled")
			set = set.without(b)
			continue
		}
		logger.Info().Str(log.FieldBackend, string(b)).Str(log.FieldEncoder, enc).Msg("capability probe: encoder verified")
	}
	return set
}

func (p *Prober) testEncoder(ctx context.Context, b Backend, encoder string) error {
	args := []string{"-hide_banner", "-loglevel", "error"}
	vf := "format=yuv420p"
	if b == BackendVAAPI {
		if _, err := os.Stat(p.cfg.VAAPIDevice); err != nil {
			return fmt.Errorf("vaapi device not accessible: %w", err)
		}
		args = append(args, "-vaapi_device", p.cfg.VAAPIDevice)
		vf = "format=nv12,hwupload"
	}
	args = append(args,
		"-f", "lavfi",
		"-i", "testsrc=duration=0.2:size=1280x720:rate=25",
		"-vf", vf,
		"-c:v", encoder,
		"-frames:v", "5",
		"-f", "null", "-",
	)
	_, err := p.run(ctx, args...)
	return err
}

// parseEncoders reads the table printed by `ffmpeg -encoders`:
//
//	V....D libx264   libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
//
// Only video encoders are returned.
func parseEncoders(out []byte) ([]string, error) {
	var (
		encoders []string
		inTable  bool
	)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inTable {
			if strings.HasPrefix(line, "------") {
				inTable = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || len(fields[0]) != 6 {
			continue
		}
		if fields[0][0] != 'V' {
			continue
		}
		encoders = append(encoders, fields[1])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !inTable {
		return nil, errors.New("encoder table header not found")
	}
	return encoders, nil
}

// parseHWAccels reads the list printed after "Hardware acceleration methods:".
func parseHWAccels(out []byte) []string {
	var (
		names  []string
		inList bool
	)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !inList {
			inList = strings.HasPrefix(line, "Hardware acceleration methods")
			continue
		}
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	return names
}
