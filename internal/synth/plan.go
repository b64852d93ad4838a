// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"strings"
	"time"

	"github.com/ManuGH/adsplice/internal/artifact"
	"github.com/ManuGH/adsplice/internal/capability"
)

// Graph modes reported on plans and metrics.
const (
	ModeTranscode     = "transcode"
	ModeSplice        = "splice"
	ModeOverlay       = "overlay"
	ModeSpliceOverlay = "splice_overlay"
)

// Input roles.
const (
	RoleSource = "source"
	RoleConcat = "concat"
	RoleAd     = "ad"
	RoleBanner = "banner"
	RoleLogo   = "logo"
)

// InputRef describes one -i argument of a plan.
type InputRef struct {
	Index int
	Path  string
	Role  string
	Image bool // looped still image
}

// CommandPlan is a complete, executable ffmpeg invocation. Nothing in it is
// shell-interpreted: Args go to the process verbatim.
type CommandPlan struct {
	JobID      string
	Binary     string
	Args       []string
	OutputPath string
	Mode       string

	FilterGraph string // empty for pure transcodes
	Inputs      []InputRef
	ConcatList  bool // splice segments are joined by the concat demuxer

	Encoder         string
	Backend         capability.Backend // BackendNone for software
	FallbackApplied bool
	FallbackReason  string

	ExpectedDuration time.Duration // 0 when unknown
	Warnings         []string
	Artifacts        []artifact.Artifact
}

// Argv returns the binary followed by its arguments.
func (p *CommandPlan) Argv() []string {
	return append([]string{p.Binary}, p.Args...)
}

// String renders the plan as a copy-pasteable POSIX shell line.
func (p *CommandPlan) String() string {
	parts := make([]string, 0, len(p.Args)+1)
	for _, a := range p.Argv() {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_+=/.,:@%", r)
}
