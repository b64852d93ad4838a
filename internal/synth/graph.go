// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/timeline"
)

const (
	labelSplice      = "vsplice"
	labelSpliceAudio = "asplice"
	labelOut         = "vout"

	audioNormalize = "aformat=sample_fmts=fltp:sample_rates=48000:channel_layouts=stereo"
)

// piece is one splice segment: a source range or a whole ad.
type piece struct {
	ad         *timeline.Insertion
	start, end time.Duration // source range; end 0 runs to the end of the source
}

// splicePieces cuts the source at every insertion point. Empty source ranges
// (an ad at 0) are skipped.
func splicePieces(tl *timeline.Normalized) []piece {
	var (
		out  []piece
		prev time.Duration
	)
	for i := range tl.Insertions {
		ins := &tl.Insertions[i]
		if ins.At > prev {
			out = append(out, piece{start: prev, end: ins.At})
		}
		out = append(out, piece{ad: ins})
		prev = ins.At
	}
	if tl.SourceDuration <= 0 || prev < tl.SourceDuration {
		out = append(out, piece{start: prev, end: tl.SourceDuration})
	}
	return out
}

func label(l string) string { return "[" + l + "]" }

// spliceInline joins source segments and ads with one concat stage. Every
// piece is normalized to the output geometry first, since concat needs
// matching frame sizes and audio layouts.
func (b *builder) spliceInline() (video string, audio []string, err error) {
	if b.width <= 0 || b.height <= 0 {
		return "", nil, unsupported("splicing requires a known output size: set encoding width/height or probe the source")
	}
	pieces := splicePieces(b.tl)
	norm := b.videoNormalize()

	var pads strings.Builder
	for i, p := range pieces {
		v, a := fmt.Sprintf("v%d", i), fmt.Sprintf("a%d", i)
		if p.ad == nil {
			b.filters = append(b.filters, "[0:v:0]"+trimFilter("trim", p)+",setpts=PTS-STARTPTS,"+norm+label(v))
			if b.audio {
				b.filters = append(b.filters, "[0:a:0]"+trimFilter("atrim", p)+",asetpts=PTS-STARTPTS,"+audioNormalize+label(a))
			}
		} else {
			idx := b.addInput(p.ad.Path, RoleAd, nil)
			b.filters = append(b.filters, fmt.Sprintf("[%d:v:0]setpts=PTS-STARTPTS,%s%s", idx, norm, label(v)))
			if b.audio {
				chain, err := adAudioChain(idx, p.ad)
				if err != nil {
					return "", nil, err
				}
				b.filters = append(b.filters, chain+label(a))
			}
		}
		pads.WriteString(label(v))
		if b.audio {
			pads.WriteString(label(a))
		}
	}

	a := 0
	outs := label(labelSplice)
	if b.audio {
		a = 1
		outs += label(labelSpliceAudio)
		audio = []string{label(labelSpliceAudio)}
		b.audioFiltered = true
	}
	b.filters = append(b.filters, fmt.Sprintf("%sconcat=n=%d:v=1:a=%d%s", pads.String(), len(pieces), a, outs))
	return label(labelSplice), audio, nil
}

func trimFilter(name string, p piece) string {
	if p.end > 0 {
		return fmt.Sprintf("%s=start=%s:end=%s", name, timeline.Secs(p.start), timeline.Secs(p.end))
	}
	return fmt.Sprintf("%s=start=%s", name, timeline.Secs(p.start))
}

// adAudioChain returns the audio branch of one ad. Silent ads get generated
// silence of the ad's length so the concat stays aligned.
func adAudioChain(idx int, ad *timeline.Insertion) (string, error) {
	if !ad.NoAudio {
		return fmt.Sprintf("[%d:a:0]asetpts=PTS-STARTPTS,%s", idx, audioNormalize), nil
	}
	if ad.Duration <= 0 {
		return "", unsupported("ad %d has no audio and an unknown duration", ad.Index)
	}
	return fmt.Sprintf("anullsrc=r=48000:cl=stereo,atrim=duration=%s,%s", timeline.Secs(ad.Duration), audioNormalize), nil
}

func (b *builder) videoNormalize() string {
	parts := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", b.width, b.height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", b.width, b.height),
		"setsar=1",
	}
	if b.fps > 0 {
		parts = append(parts, "fps="+strconv.FormatFloat(b.fps, 'f', -1, 64))
	}
	parts = append(parts, "format=yuv420p")
	return strings.Join(parts, ",")
}

// composeOverlays layers banners in supplied order and the logo last onto
// base, then appends the encoder's pixel format stage. It returns the final
// video label.
func (b *builder) composeOverlays(base string) string {
	cur := base
	if !strings.HasPrefix(cur, "[") {
		cur = label(cur)
	}
	if b.explicitSize && cur != label(labelSplice) {
		b.filters = append(b.filters, fmt.Sprintf("%sscale=%d:%d[vbase]", cur, b.width, b.height))
		cur = "[vbase]"
	}

	for k, w := range b.tl.Overlays {
		idx := b.addOverlayInput(w.Banner.Path, RoleBanner)
		src := fmt.Sprintf("[%d:v:0]", idx)
		if chain := b.bannerChain(w); chain != "" {
			bl := fmt.Sprintf("[bn%d]", k)
			b.filters = append(b.filters, src+chain+bl)
			src = bl
		}
		x, y := anchorPosition(w.Banner.Anchor, w.Banner.Margin)
		tail := "eof_action=pass"
		if isImage(w.Banner.Path) {
			tail = "shortest=1"
		}
		out := fmt.Sprintf("[vb%d]", k)
		b.filters = append(b.filters, fmt.Sprintf("%s%soverlay=x=%s:y=%s:enable='%s':%s%s",
			cur, src, x, y, windowExpr(w.OutStart, w.OutEnd), tail, out))
		cur = out
	}

	if l := b.tl.Logo; l != nil {
		idx := b.addOverlayInput(l.Logo.Path, RoleLogo)
		src := fmt.Sprintf("[%d:v:0]", idx)
		if chain := b.logoChain(l); chain != "" {
			b.filters = append(b.filters, src+chain+"[lg]")
			src = "[lg]"
		}
		b.filters = append(b.filters, fmt.Sprintf("%s%soverlay=x=%s:y=%s:shortest=1[vlogo]",
			cur, src, quoteExpr(l.X), quoteExpr(l.Y)))
		cur = "[vlogo]"
	}

	b.filters = append(b.filters, cur+b.finalFormat()+label(labelOut))
	return label(labelOut)
}

// bannerChain prepares a banner stream: video banners are shifted to their
// window, then scaled and faded as requested.
func (b *builder) bannerChain(w timeline.OverlayWindow) string {
	var parts []string
	if !isImage(w.Banner.Path) {
		parts = append(parts, fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", timeline.Secs(w.OutStart)))
	}
	if w.Banner.Width != 0 || w.Banner.Height != 0 {
		parts = append(parts, "scale="+sizeExpr(w.Banner.Width, "iw")+":"+sizeExpr(w.Banner.Height, "ih"))
	}
	if o := w.Banner.Opacity; o > 0 && o < 1 {
		parts = append(parts, alphaFilter(o))
	}
	return strings.Join(parts, ",")
}

func (b *builder) logoChain(l *timeline.LogoLayer) string {
	var parts []string
	if b.height > 0 && l.Logo.RelativeHeight > 0 {
		h := int(math.Round(float64(b.height) * l.Logo.RelativeHeight))
		if h < 2 {
			h = 2
		}
		parts = append(parts, fmt.Sprintf("scale=-2:%d", h))
	} else {
		b.warnf("logo kept at native size: output height unknown")
	}
	if o := l.Logo.Opacity; o > 0 && o < 1 {
		parts = append(parts, alphaFilter(o))
	}
	return strings.Join(parts, ",")
}

func alphaFilter(opacity float64) string {
	return "format=rgba,colorchannelmixer=aa=" + strconv.FormatFloat(opacity, 'f', -1, 64)
}

func sizeExpr(v int, native string) string {
	switch {
	case v == 0:
		return native
	case v < 0:
		return "-1"
	default:
		return strconv.Itoa(v)
	}
}

// anchorPosition returns overlay x/y expressions for a banner anchor.
func anchorPosition(a job.Anchor, margin int) (x, y string) {
	m := strconv.Itoa(margin)
	left, right, hcenter := m, "W-w-"+m, "(W-w)/2"
	top, bottom, vcenter := m, "H-h-"+m, "(H-h)/2"
	switch a {
	case job.AnchorBottom:
		return hcenter, bottom
	case job.AnchorBottomRight:
		return right, bottom
	case job.AnchorTopLeft:
		return left, top
	case job.AnchorTop:
		return hcenter, top
	case job.AnchorTopRight:
		return right, top
	case job.AnchorCenter:
		return hcenter, vcenter
	default:
		return left, bottom
	}
}

// quoteExpr single-quotes expressions that contain filter separators.
func quoteExpr(e string) string {
	if strings.ContainsAny(e, ",:;[]") {
		return "'" + e + "'"
	}
	return e
}

// windowExpr is true on the half-open interval [start, end). ffmpeg's
// between() includes its upper bound, so it is not used here.
func windowExpr(start, end time.Duration) string {
	return fmt.Sprintf("gte(t,%s)*lt(t,%s)", timeline.Secs(start), timeline.Secs(end))
}
