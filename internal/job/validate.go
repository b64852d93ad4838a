// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"fmt"
	"strings"

	"github.com/ManuGH/adsplice/internal/validate"
)

// Validate checks field-level invariants. Cross-item timing conflicts are the
// timeline resolver's business and are not reported here.
func (d *Description) Validate() error {
	v := validate.New()

	v.NotEmpty("source", d.Source)
	v.NotEmpty("output", d.Output)
	if d.Source != "" && d.Source == d.Output {
		v.AddError("output", "must differ from source", d.Output)
	}

	for i, ad := range d.Ads {
		field := fmt.Sprintf("ads[%d]", i)
		v.NotEmpty(field+".path", ad.Path)
		v.NonNegativeFloat(field+".at", ad.At.Seconds())
		v.NonNegativeFloat(field+".duration", ad.Duration.Seconds())
	}

	for i, b := range d.Banners {
		field := fmt.Sprintf("banners[%d]", i)
		v.NotEmpty(field+".path", b.Path)
		v.Interval(field, b.Start.Seconds(), b.End.Seconds())
		if b.Anchor != "" {
			v.OneOf(field+".anchor", string(b.Anchor), Anchors)
		}
		v.NonNegative(field+".margin", b.Margin)
		v.Range(field+".width", b.Width, -1, 16384)
		v.Range(field+".height", b.Height, -1, 16384)
		v.FloatRange(field+".opacity", b.Opacity, 0, 1)
	}

	if l := d.Logo; l != nil {
		v.NotEmpty("logo.path", l.Path)
		if l.Motion != "" {
			v.OneOf("logo.motion", string(l.Motion), []string{string(MotionRectangle), string(MotionBounce), string(MotionStatic)})
		}
		v.FloatRange("logo.opacity", l.Opacity, 0, 1)
		v.FloatRange("logo.relativeHeight", l.RelativeHeight, 0, 1)
		v.NonNegativeFloat("logo.speed", l.Speed)
		v.NonNegativeFloat("logo.cycle", l.Cycle.Seconds())
	}

	seen := make(map[int]bool, len(d.Tracks))
	for i, t := range d.Tracks {
		field := fmt.Sprintf("tracks[%d]", i)
		v.NonNegative(field+".index", t.Index)
		if seen[t.Index] {
			v.AddError(field+".index", "duplicate stream index", t.Index)
		}
		seen[t.Index] = true
	}
	for i, e := range d.TrackEdits {
		field := fmt.Sprintf("trackEdits[%d]", i)
		v.NonNegative(field+".stream", e.StreamIndex)
		v.Language(field+".language", e.Language)
		if strings.ContainsAny(e.Title, "\n\r") {
			v.AddError(field+".title", "must be a single line", e.Title)
		}
	}

	enc := d.Encoding
	v.NonNegative("encoding.quality", enc.Quality)
	v.NonNegativeFloat("encoding.frameRate", enc.FrameRate)
	v.NonNegative("encoding.width", enc.Width)
	v.NonNegative("encoding.height", enc.Height)
	if (enc.Width == 0) != (enc.Height == 0) {
		v.AddError("encoding.size", "width and height must be set together", fmt.Sprintf("%dx%d", enc.Width, enc.Height))
	}

	return v.Err()
}
