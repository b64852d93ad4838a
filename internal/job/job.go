// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package job defines the immutable description of one splice/overlay job.
//
// A Description is built by the caller and handed to the engine, which clones it.
// Nothing downstream mutates it. All positions are on the source timeline unless a
// field says otherwise. Zero durations mean "unknown".
package job

import "time"

// Description is everything needed to produce one output file.
type Description struct {
	ID     string
	Source string
	Output string

	Ads        []AdInsertion
	Banners    []BannerOverlay
	Logo       *MovingLogo
	Tracks     []TrackDescriptor // as reported by an external probe
	TrackEdits []TrackEdit

	SourceInfo SourceInfo
	Encoding   EncodingParams
}

// AdInsertion splices the clip at Path into the source at At.
type AdInsertion struct {
	Path     string
	At       time.Duration
	Duration time.Duration // 0 when unknown
	NoAudio  bool          // clip carries no audio stream; silence is generated
}

// Anchor places a banner relative to the frame.
type Anchor string

const (
	AnchorBottomLeft  Anchor = "bottom-left"
	AnchorBottom      Anchor = "bottom"
	AnchorBottomRight Anchor = "bottom-right"
	AnchorTopLeft     Anchor = "top-left"
	AnchorTop         Anchor = "top"
	AnchorTopRight    Anchor = "top-right"
	AnchorCenter      Anchor = "center"
)

// Anchors lists every accepted anchor.
var Anchors = []string{
	string(AnchorBottomLeft), string(AnchorBottom), string(AnchorBottomRight),
	string(AnchorTopLeft), string(AnchorTop), string(AnchorTopRight), string(AnchorCenter),
}

// BannerOverlay shows an image or clip during [Start, End).
type BannerOverlay struct {
	Path    string
	Start   time.Duration
	End     time.Duration
	Anchor  Anchor  // empty means bottom-left
	Margin  int     // pixels from the anchored edges
	Width   int     // 0 keeps the native width, -1 keeps aspect
	Height  int     // 0 keeps the native height, -1 keeps aspect
	Opacity float64 // 0 means fully opaque
}

// Motion selects the path of a moving logo.
type Motion string

const (
	MotionRectangle Motion = "rectangle" // clockwise along the frame edges
	MotionBounce    Motion = "bounce"    // diagonal bounce off the frame edges
	MotionStatic    Motion = "static"    // fixed in the top-left corner
)

// MovingLogo is a single full-duration overlay that moves over time.
// Zero-valued tuning fields take the configured defaults.
type MovingLogo struct {
	Path           string
	Motion         Motion
	Opacity        float64
	RelativeHeight float64 // fraction of the frame height
	Speed          float64 // laps per output duration
	Cycle          time.Duration
}

// TrackKind classifies a stream of the source container.
type TrackKind string

const (
	KindVideo    TrackKind = "video"
	KindAudio    TrackKind = "audio"
	KindSubtitle TrackKind = "subtitle"
	KindData     TrackKind = "data"
)

// TrackDescriptor describes one source stream.
type TrackDescriptor struct {
	Index    int // absolute stream index in the source container
	Kind     TrackKind
	Codec    string
	Title    string
	Language string
}

// TrackEdit overrides metadata of a source stream in the output.
// Empty fields are left unchanged.
type TrackEdit struct {
	StreamIndex int
	Title       string
	Language    string
}

// SourceInfo carries what is known about the source media.
type SourceInfo struct {
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	NoAudio   bool
}

// EncodingParams controls the output encode.
type EncodingParams struct {
	Container     string // mp4, mkv, mov; derived from the output extension when empty
	VideoCodec    string // h264, hevc, av1
	AudioCodec    string // aac, opus, copy, ...
	VideoBitrate  string // e.g. "4M"; takes priority over Quality
	Quality       int    // codec-specific constant quality factor, 0 for the encoder default
	Preset        string
	FrameRate     float64
	AudioBitrate  string
	Width         int
	Height        int
	HWAccel       string // auto, none, or a backend id
	StrictHWAccel bool   // refuse software fallback
	ExtraArgs     []string
}

// HasAudio reports whether the source is expected to carry an audio stream.
// Track descriptors, when present, win over SourceInfo.
func (d *Description) HasAudio() bool {
	if len(d.Tracks) > 0 {
		for _, t := range d.Tracks {
			if t.Kind == KindAudio {
				return true
			}
		}
		return false
	}
	return !d.SourceInfo.NoAudio
}
