// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ManuGH/adsplice/internal/artifact"
	"github.com/ManuGH/adsplice/internal/timeline"
)

// addConcatListInput writes the splice as an ffconcat list and makes it
// input 0. The demuxer joins streams without re-encoding them, so ads must
// already match the source's codecs and geometry.
func (b *builder) addConcatListInput() error {
	if b.arts == nil {
		return unsupported("splice of %d segments needs a concat list but no artifact scope was given", len(splicePieces(b.tl)))
	}
	for _, ins := range b.tl.Insertions {
		if ins.NoAudio && b.audio {
			return unsupported("ad %d has no audio, which a concat list cannot pad", ins.Index)
		}
	}

	a, err := b.arts.Allocate(artifact.KindConcatList, ".ffconcat")
	if err != nil {
		return fmt.Errorf("synth: allocate concat list: %w", err)
	}
	if err := b.arts.WriteFile(a, []byte(concatList(b.job.Source, splicePieces(b.tl)))); err != nil {
		return fmt.Errorf("synth: write concat list: %w", err)
	}
	b.plan.Artifacts = append(b.plan.Artifacts, a)
	b.plan.ConcatList = true
	b.addInput(a.Path, RoleConcat, []string{"-f", "concat", "-safe", "0"})
	b.warnf("splice uses a concat list: ads must share the source's codecs, size and frame rate")
	return nil
}

// concatList renders pieces in ffconcat syntax.
func concatList(source string, pieces []piece) string {
	var sb strings.Builder
	sb.WriteString("ffconcat version 1.0\n")
	for _, p := range pieces {
		if p.ad != nil {
			fmt.Fprintf(&sb, "file %s\n", concatQuote(p.ad.Path))
			if p.ad.Duration > 0 {
				fmt.Fprintf(&sb, "duration %s\n", timeline.Secs(p.ad.Duration))
			}
			continue
		}
		fmt.Fprintf(&sb, "file %s\n", concatQuote(source))
		if p.start > 0 {
			fmt.Fprintf(&sb, "inpoint %s\n", timeline.Secs(p.start))
		}
		if p.end > 0 {
			fmt.Fprintf(&sb, "outpoint %s\n", timeline.Secs(p.end))
		}
	}
	return sb.String()
}

// concatQuote quotes a path for the concat demuxer. Relative paths would
// resolve against the list's directory, so they are made absolute first.
// Backslashes become forward slashes; single quotes are closed, escaped and
// reopened.
func concatQuote(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = strings.ReplaceAll(path, `\`, "/")
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
