// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import "slices"

// Clone returns a deep copy sharing no mutable state with d.
func (d *Description) Clone() *Description {
	if d == nil {
		return nil
	}
	out := *d
	out.Ads = slices.Clone(d.Ads)
	out.Banners = slices.Clone(d.Banners)
	out.Tracks = slices.Clone(d.Tracks)
	out.TrackEdits = slices.Clone(d.TrackEdits)
	out.Encoding.ExtraArgs = slices.Clone(d.Encoding.ExtraArgs)
	if d.Logo != nil {
		logo := *d.Logo
		out.Logo = &logo
	}
	return &out
}
