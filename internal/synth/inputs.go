// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/adsplice/internal/capability"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true,
	".webp": true, ".tif": true, ".tiff": true,
}

func isImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// addInput registers path once and returns its input index.
// Options of the first registration win.
func (b *builder) addInput(path, role string, opts []string) int {
	if idx, ok := b.byPath[path]; ok {
		return idx
	}
	idx := len(b.plan.Inputs)
	b.byPath[path] = idx
	b.plan.Inputs = append(b.plan.Inputs, InputRef{Index: idx, Path: path, Role: role, Image: isImage(path)})
	b.inputOpts = append(b.inputOpts, opts)
	return idx
}

// addSource makes the source input 0, with decode acceleration when the
// chosen backend pairs with one the engine reported.
func (b *builder) addSource() {
	var opts []string
	switch b.enc.backend {
	case capability.BackendNVENC:
		if b.caps.HasHWAccel("cuda") {
			opts = []string{"-hwaccel", "cuda"}
		}
	case capability.BackendVideoToolbox:
		if b.caps.HasHWAccel("videotoolbox") {
			opts = []string{"-hwaccel", "videotoolbox"}
		}
	}
	b.addInput(b.job.Source, RoleSource, opts)
}

// addOverlayInput registers a banner or logo asset. Still images loop
// forever; video logos loop too so the logo lasts the whole output.
func (b *builder) addOverlayInput(path, role string) int {
	var opts []string
	switch {
	case isImage(path):
		opts = []string{"-loop", "1"}
		if b.fps > 0 {
			opts = append(opts, "-framerate", strconv.FormatFloat(b.fps, 'f', -1, 64))
		}
	case role == RoleLogo:
		opts = []string{"-stream_loop", "-1"}
	}
	return b.addInput(path, role, opts)
}
