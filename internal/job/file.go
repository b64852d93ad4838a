// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileJob struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
	Output string `yaml:"output"`

	Ads []struct {
		Path     string   `yaml:"path"`
		At       Timecode `yaml:"at"`
		Duration Timecode `yaml:"duration"`
		NoAudio  bool     `yaml:"noAudio"`
	} `yaml:"ads"`

	Banners []struct {
		Path    string   `yaml:"path"`
		Start   Timecode `yaml:"start"`
		End     Timecode `yaml:"end"`
		Anchor  string   `yaml:"anchor"`
		Margin  int      `yaml:"margin"`
		Width   int      `yaml:"width"`
		Height  int      `yaml:"height"`
		Opacity float64  `yaml:"opacity"`
	} `yaml:"banners"`

	Logo *struct {
		Path           string   `yaml:"path"`
		Motion         string   `yaml:"motion"`
		Opacity        float64  `yaml:"opacity"`
		RelativeHeight float64  `yaml:"relativeHeight"`
		Speed          float64  `yaml:"speed"`
		Cycle          Timecode `yaml:"cycle"`
	} `yaml:"logo"`

	Tracks []struct {
		Index    int    `yaml:"index"`
		Kind     string `yaml:"kind"`
		Codec    string `yaml:"codec"`
		Title    string `yaml:"title"`
		Language string `yaml:"language"`
	} `yaml:"tracks"`

	TrackEdits []struct {
		Stream   int    `yaml:"stream"`
		Title    string `yaml:"title"`
		Language string `yaml:"language"`
	} `yaml:"trackEdits"`

	SourceInfo struct {
		Duration  Timecode `yaml:"duration"`
		Width     int      `yaml:"width"`
		Height    int      `yaml:"height"`
		FrameRate float64  `yaml:"frameRate"`
		NoAudio   bool     `yaml:"noAudio"`
	} `yaml:"sourceInfo"`

	Encoding struct {
		Container     string   `yaml:"container"`
		VideoCodec    string   `yaml:"videoCodec"`
		AudioCodec    string   `yaml:"audioCodec"`
		VideoBitrate  string   `yaml:"videoBitrate"`
		Quality       int      `yaml:"quality"`
		Preset        string   `yaml:"preset"`
		FrameRate     float64  `yaml:"frameRate"`
		AudioBitrate  string   `yaml:"audioBitrate"`
		Width         int      `yaml:"width"`
		Height        int      `yaml:"height"`
		HWAccel       string   `yaml:"hwaccel"`
		StrictHWAccel bool     `yaml:"strictHWAccel"`
		ExtraArgs     []string `yaml:"extraArgs"`
	} `yaml:"encoding"`
}

// LoadFile reads a YAML job description. Relative media paths resolve against
// the directory of the job file.
func LoadFile(path string) (*Description, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported job format: %s (only YAML supported)", ext)
	}
	// #nosec G304 -- job files are chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.resolvePaths(filepath.Dir(path))
	return d, nil
}

// Parse decodes a single-document YAML job. Unknown keys are rejected.
func Parse(data []byte) (*Description, error) {
	var fj fileJob
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fj); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("job file is empty")
		}
		return nil, fmt.Errorf("parse job: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("job file contains multiple documents or trailing content")
	}
	return fj.toDescription(), nil
}

func (fj *fileJob) toDescription() *Description {
	d := &Description{
		ID:     fj.ID,
		Source: fj.Source,
		Output: fj.Output,
	}
	for _, a := range fj.Ads {
		d.Ads = append(d.Ads, AdInsertion{
			Path:     a.Path,
			At:       a.At.Duration(),
			Duration: a.Duration.Duration(),
			NoAudio:  a.NoAudio,
		})
	}
	for _, b := range fj.Banners {
		d.Banners = append(d.Banners, BannerOverlay{
			Path:    b.Path,
			Start:   b.Start.Duration(),
			End:     b.End.Duration(),
			Anchor:  Anchor(strings.ToLower(b.Anchor)),
			Margin:  b.Margin,
			Width:   b.Width,
			Height:  b.Height,
			Opacity: b.Opacity,
		})
	}
	if l := fj.Logo; l != nil {
		d.Logo = &MovingLogo{
			Path:           l.Path,
			Motion:         Motion(strings.ToLower(l.Motion)),
			Opacity:        l.Opacity,
			RelativeHeight: l.RelativeHeight,
			Speed:          l.Speed,
			Cycle:          l.Cycle.Duration(),
		}
	}
	for _, t := range fj.Tracks {
		d.Tracks = append(d.Tracks, TrackDescriptor{
			Index:    t.Index,
			Kind:     TrackKind(strings.ToLower(t.Kind)),
			Codec:    t.Codec,
			Title:    t.Title,
			Language: t.Language,
		})
	}
	for _, e := range fj.TrackEdits {
		d.TrackEdits = append(d.TrackEdits, TrackEdit{
			StreamIndex: e.Stream,
			Title:       e.Title,
			Language:    e.Language,
		})
	}
	d.SourceInfo = SourceInfo{
		Duration:  fj.SourceInfo.Duration.Duration(),
		Width:     fj.SourceInfo.Width,
		Height:    fj.SourceInfo.Height,
		FrameRate: fj.SourceInfo.FrameRate,
		NoAudio:   fj.SourceInfo.NoAudio,
	}
	e := fj.Encoding
	d.Encoding = EncodingParams{
		Container:     strings.ToLower(e.Container),
		VideoCodec:    strings.ToLower(e.VideoCodec),
		AudioCodec:    strings.ToLower(e.AudioCodec),
		VideoBitrate:  e.VideoBitrate,
		Quality:       e.Quality,
		Preset:        e.Preset,
		FrameRate:     e.FrameRate,
		AudioBitrate:  e.AudioBitrate,
		Width:         e.Width,
		Height:        e.Height,
		HWAccel:       strings.ToLower(e.HWAccel),
		StrictHWAccel: e.StrictHWAccel,
		ExtraArgs:     e.ExtraArgs,
	}
	return d
}

func (d *Description) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	d.Source = abs(d.Source)
	d.Output = abs(d.Output)
	for i := range d.Ads {
		d.Ads[i].Path = abs(d.Ads[i].Path)
	}
	for i := range d.Banners {
		d.Banners[i].Path = abs(d.Banners[i].Path)
	}
	if d.Logo != nil {
		d.Logo.Path = abs(d.Logo.Path)
	}
}
