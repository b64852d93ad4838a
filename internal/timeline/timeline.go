// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package timeline orders ad insertions and maps overlay windows onto the
// output timeline.
//
// Source time is the position in the original video. Output time is the
// position in the produced file, which is longer by every ad spliced in before it.
package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/adsplice/internal/job"
)

// ErrTimelineConflict classifies every ordering or timing conflict.
var ErrTimelineConflict = errors.New("timeline conflict")

// ErrUnknownAdDuration is returned when a banner must be shifted past an ad
// whose duration is not known. It is a missing media fact, not a conflict.
var ErrUnknownAdDuration = errors.New("ad duration unknown")

// ConflictError describes why a timeline could not be resolved.
// Indexes refer to positions in the caller's input slices.
type ConflictError struct {
	Reason string
	Index  int
	Other  int // -1 when the conflict involves a single item
	At     time.Duration
}

func (e *ConflictError) Error() string {
	if e.Other >= 0 {
		return fmt.Sprintf("timeline conflict: %s (ads %d and %d at %s)", e.Reason, e.Index, e.Other, Secs(e.At))
	}
	return fmt.Sprintf("timeline conflict: %s (item %d at %s)", e.Reason, e.Index, Secs(e.At))
}

// Is makes errors.Is(err, ErrTimelineConflict) hold.
func (e *ConflictError) Is(target error) bool { return target == ErrTimelineConflict }

// Insertion is an ad placed on both timelines.
type Insertion struct {
	Index    int // position in the job's ad list
	Path     string
	At       time.Duration // source time
	OutputAt time.Duration // output time the ad starts at, valid when DurationsKnown
	Duration time.Duration
	NoAudio  bool
}

// OverlayWindow is a banner clipped to the source and mapped to output time.
type OverlayWindow struct {
	Index    int // position in the job's banner list
	Banner   job.BannerOverlay
	Start    time.Duration // source time, clipped
	End      time.Duration
	OutStart time.Duration
	OutEnd   time.Duration
}

// LogoLayer is the moving logo resolved to motion expressions of t.
type LogoLayer struct {
	Logo   job.MovingLogo // defaults applied
	Cycle  time.Duration
	Static bool
	X      string // overlay x expression
	Y      string // overlay y expression
}

// Normalized is the resolved, ordered timeline of one job.
type Normalized struct {
	Insertions     []Insertion
	Overlays       []OverlayWindow
	Logo           *LogoLayer
	SourceDuration time.Duration // 0 when unknown
	OutputDuration time.Duration // 0 when unknown
	DurationsKnown bool          // every ad duration is known
	Warnings       []string
}

// HasSplices reports whether any ad is inserted.
func (n *Normalized) HasSplices() bool { return len(n.Insertions) > 0 }

// HasOverlays reports whether any banner or logo is composited.
func (n *Normalized) HasOverlays() bool { return len(n.Overlays) > 0 || n.Logo != nil }

// Secs renders d as decimal seconds with millisecond precision and no trailing zeros.
func Secs(d time.Duration) string {
	ms := d.Round(time.Millisecond).Milliseconds()
	s := strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
