// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capability detects which hardware encoders the local ffmpeg build offers.
package capability

import (
	"slices"
	"strings"
)

// Backend identifies a hardware encoding family.
type Backend string

const (
	BackendNone         Backend = ""
	BackendNVENC        Backend = "nvenc"
	BackendQSV          Backend = "qsv"
	BackendVAAPI        Backend = "vaapi"
	BackendVideoToolbox Backend = "videotoolbox"
	BackendAMF          Backend = "amf"
)

// AllBackends lists every known backend in default preference order.
var AllBackends = []Backend{BackendNVENC, BackendQSV, BackendVAAPI, BackendVideoToolbox, BackendAMF}

// ParseBackend maps user spellings to a backend. ok is false for unknown names.
func ParseBackend(s string) (Backend, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nvenc", "cuda", "nvidia":
		return BackendNVENC, true
	case "qsv", "quicksync":
		return BackendQSV, true
	case "vaapi":
		return BackendVAAPI, true
	case "videotoolbox", "vt":
		return BackendVideoToolbox, true
	case "amf":
		return BackendAMF, true
	}
	return BackendNone, false
}

// Set is an immutable snapshot of what the ffmpeg build reported.
// The zero value is the empty set (software only).
type Set struct {
	backends map[Backend]bool
	encoders map[string]bool
	hwaccels map[string]bool
}

// NewSet derives backends from encoder names (h264_nvenc -> nvenc).
func NewSet(encoders, hwaccels []string) Set {
	s := Set{
		backends: make(map[Backend]bool),
		encoders: make(map[string]bool, len(encoders)),
		hwaccels: make(map[string]bool, len(hwaccels)),
	}
	for _, e := range encoders {
		s.encoders[e] = true
		if b := backendOfEncoder(e); b != BackendNone {
			s.backends[b] = true
		}
	}
	for _, h := range hwaccels {
		s.hwaccels[h] = true
	}
	return s
}

func backendOfEncoder(name string) Backend {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return BackendNone
	}
	b, ok := ParseBackend(name[i+1:])
	if !ok || string(b) != name[i+1:] {
		return BackendNone
	}
	return b
}

// without returns a copy of s with backend b and its encoders removed.
func (s Set) without(b Backend) Set {
	out := Set{
		backends: make(map[Backend]bool, len(s.backends)),
		encoders: make(map[string]bool, len(s.encoders)),
		hwaccels: s.hwaccels,
	}
	for k := range s.backends {
		if k != b {
			out.backends[k] = true
		}
	}
	for e := range s.encoders {
		if backendOfEncoder(e) != b {
			out.encoders[e] = true
		}
	}
	return out
}

// Has reports whether backend b is available.
func (s Set) Has(b Backend) bool { return s.backends[b] }

// HasEncoder reports whether the named encoder is compiled in.
func (s Set) HasEncoder(name string) bool { return s.encoders[name] }

// HasHWAccel reports whether ffmpeg listed name under -hwaccels.
func (s Set) HasHWAccel(name string) bool { return s.hwaccels[name] }

// Empty reports whether no hardware backend is available.
func (s Set) Empty() bool { return len(s.backends) == 0 }

// Backends returns available backends in AllBackends order.
func (s Set) Backends() []Backend {
	var out []Backend
	for _, b := range AllBackends {
		if s.backends[b] {
			out = append(out, b)
		}
	}
	return out
}

// Encoders returns every encoder name, sorted.
func (s Set) Encoders() []string {
	out := make([]string, 0, len(s.encoders))
	for e := range s.encoders {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// HWAccels returns every hwaccel name, sorted.
func (s Set) HWAccels() []string {
	out := make([]string, 0, len(s.hwaccels))
	for h := range s.hwaccels {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}
