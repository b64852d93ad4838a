// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediaprobe reads duration, geometry and stream layout of media
// files with ffprobe.
package mediaprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/log"
)

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
	Bin     string
	Timeout time.Duration
}

// Info is what ffprobe reported about one file. Zero values mean unknown.
type Info struct {
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	HasAudio  bool
	Tracks    []job.TrackDescriptor
}

// Prober wraps the ffprobe binary.
type Prober struct {
	cfg    Config
	cmd    Commander
	logger zerolog.Logger
}

// New creates a Prober. A nil cmd runs ffprobe for real.
func New(cfg Config, cmd Commander) *Prober {
	if cfg.Bin == "" {
		cfg.Bin = "ffprobe"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cmd == nil {
		cmd = execCommander{}
	}
	return &Prober{cfg: cfg, cmd: cmd, logger: log.WithComponent("mediaprobe")}
}

// Inspect runs ffprobe on path.
func (p *Prober) Inspect(ctx context.Context, path string) (Info, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, errors.New("mediaprobe: empty path")
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	out, err := p.cmd.Output(ctx, p.cfg.Bin, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Info{}, fmt.Errorf("mediaprobe: ffprobe %s: %w", path, err)
	}
	info, err := Parse(out)
	if err != nil {
		return Info{}, fmt.Errorf("mediaprobe: %s: %w", path, err)
	}
	return info, nil
}

// Fill completes unknown fields of j from ffprobe: source duration, size,
// frame rate, audio presence and tracks, plus ad durations and audio.
// Probe failures leave the fields unknown and are logged, never returned.
func (p *Prober) Fill(ctx context.Context, j *job.Description) {
	logger := log.WithContext(ctx, p.logger)

	si := &j.SourceInfo
	needSource := si.Duration <= 0 || si.Width <= 0 || si.Height <= 0 || si.FrameRate <= 0 || len(j.Tracks) == 0
	if needSource {
		info, err := p.Inspect(ctx, j.Source)
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, j.Source).Msg("source probe failed, media details stay unknown")
		} else {
			if si.Duration <= 0 {
				si.Duration = info.Duration
			}
			if si.Width <= 0 || si.Height <= 0 {
				si.Width, si.Height = info.Width, info.Height
			}
			if si.FrameRate <= 0 {
				si.FrameRate = info.FrameRate
			}
			if len(j.Tracks) == 0 {
				j.Tracks = info.Tracks
				si.NoAudio = !info.HasAudio
			}
		}
	}

	for i := range j.Ads {
		ad := &j.Ads[i]
		if ad.Duration > 0 {
			continue
		}
		info, err := p.Inspect(ctx, ad.Path)
		if err != nil {
			logger.Warn().Err(err).Int("ad", i).Str(log.FieldPath, ad.Path).Msg("ad probe failed, duration stays unknown")
			continue
		}
		ad.Duration = info.Duration
		ad.NoAudio = ad.NoAudio || !info.HasAudio
	}
}

type result struct {
	Streams []stream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type stream struct {
	Index        int               `json:"index"`
	CodecName    string            `json:"codec_name"`
	CodecType    string            `json:"codec_type"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	RFrameRate   string            `json:"r_frame_rate"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
	Disposition  struct {
		AttachedPic int `json:"attached_pic"`
	} `json:"disposition"`
}

// Parse decodes ffprobe's -of json output.
func Parse(data []byte) (Info, error) {
	var r result
	if err := json.Unmarshal(data, &r); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe json: %w", err)
	}

	var info Info
	info.Duration = seconds(r.Format.Duration)
	haveVideo := false
	for _, s := range r.Streams {
		kind := kindOf(s.CodecType)
		if kind == "" {
			continue
		}
		if kind == job.KindVideo && s.Disposition.AttachedPic == 1 {
			// cover art is not a video track
			continue
		}
		info.Tracks = append(info.Tracks, job.TrackDescriptor{
			Index:    s.Index,
			Kind:     kind,
			Codec:    s.CodecName,
			Title:    tag(s.Tags, "title"),
			Language: tag(s.Tags, "language"),
		})
		switch kind {
		case job.KindVideo:
			if haveVideo {
				continue
			}
			haveVideo = true
			info.Width, info.Height = s.Width, s.Height
			info.FrameRate = rate(s.AvgFrameRate)
			if info.FrameRate == 0 {
				info.FrameRate = rate(s.RFrameRate)
			}
			if info.Duration == 0 {
				info.Duration = seconds(s.Duration)
			}
		case job.KindAudio:
			info.HasAudio = true
		}
	}
	return info, nil
}

func kindOf(codecType string) job.TrackKind {
	switch strings.ToLower(codecType) {
	case "video":
		return job.KindVideo
	case "audio":
		return job.KindAudio
	case "subtitle":
		return job.KindSubtitle
	case "data":
		return job.KindData
	default:
		return ""
	}
}

func tag(tags map[string]string, key string) string {
	for k, v := range tags {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// seconds parses a decimal seconds string. Unknown or invalid gives 0.
func seconds(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}

// rate parses "num/den" frame rates. "0/0" gives 0.
func rate(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		v, err := strconv.ParseFloat(num, 64)
		if err != nil || v < 0 {
			return 0
		}
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 || n <= 0 {
		return 0
	}
	return math.Round(n/d*1000) / 1000
}
