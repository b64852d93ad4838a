// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/log"
)

// staticCycle is the shortest lap that still reads as motion.
const staticCycle = 500 * time.Millisecond

// LogoDefaults fill unset moving-logo fields.
type LogoDefaults struct {
	RelativeHeight float64
	Opacity        float64
	Speed          float64
	DefaultCycle   time.Duration
}

// Config tunes the resolver.
type Config struct {
	MinSeparation time.Duration
	Logo          LogoDefaults
}

// Resolver turns job timing into a Normalized timeline. It holds no per-job state.
type Resolver struct {
	cfg    Config
	logger zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(cfg Config) *Resolver {
	if cfg.Logo.Speed <= 0 {
		cfg.Logo.Speed = 1
	}
	if cfg.Logo.DefaultCycle <= 0 {
		cfg.Logo.DefaultCycle = 20 * time.Second
	}
	return &Resolver{cfg: cfg, logger: log.WithComponent("timeline")}
}

// Resolve orders ads, validates spacing, clips banners and resolves the logo.
// sourceDuration is 0 when unknown. Identical input yields identical output.
func (r *Resolver) Resolve(ctx context.Context, ads []job.AdInsertion, banners []job.BannerOverlay, logo *job.MovingLogo, sourceDuration time.Duration) (*Normalized, error) {
	logger := log.WithContext(ctx, r.logger)
	n := &Normalized{SourceDuration: sourceDuration, DurationsKnown: true}

	ins, err := r.orderAds(ads, sourceDuration)
	if err != nil {
		return nil, err
	}
	var offset time.Duration
	for i := range ins {
		if ins[i].Duration <= 0 {
			n.DurationsKnown = false
		}
		ins[i].OutputAt = ins[i].At + offset
		offset += ins[i].Duration
	}
	n.Insertions = ins
	if sourceDuration > 0 && n.DurationsKnown {
		n.OutputDuration = sourceDuration + offset
	}

	for i, b := range banners {
		w, keep, err := r.mapBanner(n, i, b)
		if err != nil {
			return nil, err
		}
		if !keep {
			msg := fmt.Sprintf("banner %d starts at or after the end of the source (%ss) and was dropped", i, Secs(sourceDuration))
			n.Warnings = append(n.Warnings, msg)
			logger.Warn().Int("banner", i).Str(log.FieldPath, b.Path).Msg("banner outside source, dropped")
			continue
		}
		n.Overlays = append(n.Overlays, w)
	}

	if logo != nil {
		n.Logo = r.resolveLogo(*logo, n.OutputDuration)
	}

	logger.Debug().
		Int("ads", len(n.Insertions)).
		Int("overlays", len(n.Overlays)).
		Bool("logo", n.Logo != nil).
		Str("output_duration", Secs(n.OutputDuration)).
		Msg("timeline resolved")
	return n, nil
}

func (r *Resolver) orderAds(ads []job.AdInsertion, sourceDuration time.Duration) ([]Insertion, error) {
	ins := make([]Insertion, len(ads))
	for i, a := range ads {
		if a.At < 0 {
			return nil, &ConflictError{Reason: "ad placed before the start of the source", Index: i, Other: -1, At: a.At}
		}
		if sourceDuration > 0 && a.At >= sourceDuration {
			return nil, &ConflictError{Reason: "ad placed at or after the end of the source", Index: i, Other: -1, At: a.At}
		}
		ins[i] = Insertion{Index: i, Path: a.Path, At: a.At, Duration: a.Duration, NoAudio: a.NoAudio}
	}
	sort.SliceStable(ins, func(i, j int) bool { return ins[i].At < ins[j].At })

	for i := 1; i < len(ins); i++ {
		prev, cur := ins[i-1], ins[i]
		gap := cur.At - prev.At
		if gap == 0 {
			return nil, &ConflictError{Reason: "ads share a timestamp", Index: prev.Index, Other: cur.Index, At: cur.At}
		}
		if gap < r.cfg.MinSeparation {
			return nil, &ConflictError{
				Reason: fmt.Sprintf("ads closer than %ss", Secs(r.cfg.MinSeparation)),
				Index:  prev.Index,
				Other:  cur.Index,
				At:     cur.At,
			}
		}
	}
	return ins, nil
}

// mapBanner clips b to the source and shifts it past every ad spliced in
// before it. An ad exactly at Start plays before the banner appears; an ad
// exactly at End plays after it is gone.
func (r *Resolver) mapBanner(n *Normalized, i int, b job.BannerOverlay) (OverlayWindow, bool, error) {
	start, end := b.Start, b.End
	if start < 0 {
		start = 0
	}
	if n.SourceDuration > 0 {
		if start >= n.SourceDuration {
			return OverlayWindow{}, false, nil
		}
		if end > n.SourceDuration {
			end = n.SourceDuration
		}
	}
	if end <= start {
		return OverlayWindow{}, false, &ConflictError{Reason: "banner window is empty", Index: i, Other: -1, At: start}
	}

	var shiftStart, shiftEnd time.Duration
	for _, ad := range n.Insertions {
		if ad.At > end {
			break
		}
		affectsStart := ad.At <= start
		affectsEnd := ad.At < end
		if !affectsStart && !affectsEnd {
			continue
		}
		if ad.Duration <= 0 {
			return OverlayWindow{}, false, fmt.Errorf("%w: banner %d at %s follows ad %d",
				ErrUnknownAdDuration, i, Secs(start), ad.Index)
		}
		if affectsStart {
			shiftStart += ad.Duration
		}
		if affectsEnd {
			shiftEnd += ad.Duration
		}
	}

	return OverlayWindow{
		Index:    i,
		Banner:   b,
		Start:    start,
		End:      end,
		OutStart: start + shiftStart,
		OutEnd:   end + shiftEnd,
	}, true, nil
}

func (r *Resolver) resolveLogo(l job.MovingLogo, outputDuration time.Duration) *LogoLayer {
	d := r.cfg.Logo
	if l.Motion == "" {
		l.Motion = job.MotionRectangle
	}
	if l.Opacity <= 0 {
		l.Opacity = d.Opacity
	}
	if l.RelativeHeight <= 0 {
		l.RelativeHeight = d.RelativeHeight
	}
	if l.Speed <= 0 {
		l.Speed = d.Speed
	}

	cycle := l.Cycle
	if cycle <= 0 {
		if outputDuration > 0 {
			cycle = time.Duration(float64(outputDuration) / l.Speed)
		} else {
			cycle = d.DefaultCycle
		}
	}
	cycle = cycle.Round(time.Millisecond)

	layer := &LogoLayer{Logo: l, Cycle: cycle}
	if l.Motion == job.MotionStatic || cycle <= staticCycle {
		layer.Static = true
		layer.X, layer.Y = "0", "0"
		return layer
	}
	switch l.Motion {
	case job.MotionBounce:
		layer.X, layer.Y = bounceExpr(cycle)
	default:
		layer.X, layer.Y = rectangleExpr(cycle)
	}
	return layer
}

// rectangleExpr walks the frame edges clockwise once per cycle, a quarter
// cycle per edge, starting in the top-left corner.
func rectangleExpr(cycle time.Duration) (x, y string) {
	c := Secs(cycle)
	q := Secs(cycle / 4)
	h := Secs(cycle / 2)
	tq := Secs(cycle * 3 / 4)
	p := "mod(t," + c + ")"

	x = fmt.Sprintf("if(lt(%[1]s,%[2]s),(W-w)*%[1]s/%[2]s,if(lt(%[1]s,%[3]s),W-w,if(lt(%[1]s,%[4]s),(W-w)*(1-(%[1]s-%[3]s)/%[2]s),0)))",
		p, q, h, tq)
	y = fmt.Sprintf("if(lt(%[1]s,%[2]s),0,if(lt(%[1]s,%[3]s),(H-h)*(%[1]s-%[2]s)/%[2]s,if(lt(%[1]s,%[4]s),H-h,(H-h)*(1-(%[1]s-%[4]s)/%[2]s))))",
		p, q, h, tq)
	return x, y
}

// bounceExpr moves diagonally and reflects off the edges. The vertical period
// differs from the horizontal one so the path does not retrace itself.
func bounceExpr(cycle time.Duration) (x, y string) {
	cx := Secs(cycle)
	cy := Secs(time.Duration(float64(cycle) * 0.73).Round(time.Millisecond))
	x = fmt.Sprintf("(W-w)*abs(mod(2*t/%s,2)-1)", cx)
	y = fmt.Sprintf("(H-h)*abs(mod(2*t/%s,2)-1)", cy)
	return x, y
}
