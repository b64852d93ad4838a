// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/adsplice/internal/artifact"
	"github.com/ManuGH/adsplice/internal/capability"
	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/timeline"
)

const sec = time.Second

func resolve(t *testing.T, j *job.Description) *timeline.Normalized {
	t.Helper()
	r := timeline.NewResolver(timeline.Config{
		MinSeparation: sec,
		Logo: timeline.LogoDefaults{
			RelativeHeight: 1.0 / 12.0,
			Opacity:        0.5,
			Speed:          2,
			DefaultCycle:   20 * sec,
		},
	})
	n, err := r.Resolve(context.Background(), j.Ads, j.Banners, j.Logo, j.SourceInfo.Duration)
	require.NoError(t, err)
	return n
}

func baseJob() *job.Description {
	return &job.Description{
		ID:     "job-1",
		Source: "/media/source.mp4",
		Output: "/media/out.mp4",
		SourceInfo: job.SourceInfo{
			Duration:  120 * sec,
			Width:     1920,
			Height:    1080,
			FrameRate: 25,
		},
		Encoding: job.EncodingParams{HWAccel: "none"},
	}
}

func synthesize(t *testing.T, s *Synthesizer, j *job.Description, caps capability.Set, scope ArtifactScope) (*CommandPlan, error) {
	t.Helper()
	return s.Synthesize(context.Background(), Input{
		Job:          j,
		Timeline:     resolve(t, j),
		Capabilities: caps,
		Artifacts:    scope,
	})
}

// hasSeq reports whether seq appears contiguously in args.
func hasSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		if cmp.Equal(args[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func TestSynthesize_PureTranscode(t *testing.T) {
	j := baseJob()
	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeTranscode, plan.Mode)
	assert.Empty(t, plan.FilterGraph)
	assert.NotContains(t, plan.Args, "-filter_complex")
	assert.NotContains(t, plan.Args, "-vf")
	for _, a := range plan.Args {
		assert.NotContains(t, a, "concat")
		assert.NotContains(t, a, "overlay")
	}
	require.Len(t, plan.Inputs, 1)
	assert.Equal(t, RoleSource, plan.Inputs[0].Role)
	assert.True(t, hasSeq(plan.Args, "-map", "0:v:0"))
	assert.True(t, hasSeq(plan.Args, "-c:v", "libx264"))
	assert.True(t, hasSeq(plan.Args, "-c:a", "aac", "-b:a", "192k"))
	assert.True(t, hasSeq(plan.Args, "-movflags", "+faststart+use_metadata_tags"))
	assert.True(t, hasSeq(plan.Args, "-progress", "pipe:1", "-nostats"))
	assert.Equal(t, "/media/out.mp4", plan.Args[len(plan.Args)-1])
	assert.Equal(t, "ffmpeg", plan.Argv()[0])
}

func TestSynthesize_ScenarioA_SingleAdSoftware(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 60 * sec, Duration: 15 * sec}}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeSplice, plan.Mode)
	assert.Equal(t, 1, strings.Count(plan.FilterGraph, "concat="))
	assert.Contains(t, plan.FilterGraph, "concat=n=3:v=1:a=1[vsplice][asplice]")
	assert.Contains(t, plan.FilterGraph, "[0:v:0]trim=start=0:end=60,setpts=PTS-STARTPTS,")
	assert.Contains(t, plan.FilterGraph, "[1:v:0]setpts=PTS-STARTPTS,scale=1920:1080")
	assert.Contains(t, plan.FilterGraph, "[0:v:0]trim=start=60:end=120,")
	assert.Contains(t, plan.FilterGraph, "[v0][a0][v1][a1][v2][a2]concat")
	assert.NotContains(t, plan.FilterGraph, "overlay")

	assert.Equal(t, "libx264", plan.Encoder)
	assert.Equal(t, capability.BackendNone, plan.Backend)
	assert.False(t, plan.FallbackApplied)
	assert.True(t, hasSeq(plan.Args, "-map", "[vout]", "-map", "[asplice]"))
	assert.True(t, hasSeq(plan.Args, "-t", "135"))
	assert.Equal(t, 135*sec, plan.ExpectedDuration)

	require.Len(t, plan.Inputs, 2)
	assert.Equal(t, RoleAd, plan.Inputs[1].Role)
}

func TestSynthesize_ScenarioB_OverlappingBanners(t *testing.T) {
	j := baseJob()
	j.Banners = []job.BannerOverlay{
		{Path: "/media/a.png", Start: 10 * sec, End: 20 * sec},
		{Path: "/media/b.png", Start: 15 * sec, End: 25 * sec, Anchor: job.AnchorTopRight, Margin: 16},
	}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeOverlay, plan.Mode)
	assert.Equal(t, 2, strings.Count(plan.FilterGraph, "overlay="))
	assert.NotContains(t, plan.FilterGraph, "concat")
	assert.Contains(t, plan.FilterGraph, "[0:v:0][1:v:0]overlay=x=0:y=H-h-0:enable='gte(t,10)*lt(t,20)':shortest=1[vb0]")
	assert.Contains(t, plan.FilterGraph, "[vb0][2:v:0]overlay=x=W-w-16:y=16:enable='gte(t,15)*lt(t,25)':shortest=1[vb1]")
	assert.Contains(t, plan.FilterGraph, "[vb1]format=yuv420p[vout]")

	// banners are still images and loop
	assert.True(t, hasSeq(plan.Args, "-loop", "1", "-framerate", "25", "-i", "/media/a.png"))
	assert.True(t, hasSeq(plan.Args, "-map", "[vout]", "-map", "0:a?", "-map", "0:s?"))
}

func TestSynthesize_BackToBackBannersDoNotOverlap(t *testing.T) {
	j := baseJob()
	j.Banners = []job.BannerOverlay{
		{Path: "/media/a.png", Start: 10 * sec, End: 20 * sec},
		{Path: "/media/b.png", Start: 20 * sec, End: 30 * sec},
	}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	// at t=20 only the second banner is enabled
	assert.Contains(t, plan.FilterGraph, "enable='gte(t,10)*lt(t,20)'")
	assert.Contains(t, plan.FilterGraph, "enable='gte(t,20)*lt(t,30)'")
	assert.NotContains(t, plan.FilterGraph, "between(")
}

func TestSynthesize_BannerShiftedBySplice(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 5 * sec, Duration: 10 * sec}}
	j.Banners = []job.BannerOverlay{{Path: "/media/promo.mov", Start: 30 * sec, End: 40 * sec, Opacity: 0.8, Width: 320, Height: -1}}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeSpliceOverlay, plan.Mode)
	assert.Contains(t, plan.FilterGraph, "[2:v:0]setpts=PTS-STARTPTS+40/TB,scale=320:-1,format=rgba,colorchannelmixer=aa=0.8[bn0]")
	assert.Contains(t, plan.FilterGraph, "[vsplice][bn0]overlay=x=0:y=H-h-0:enable='gte(t,40)*lt(t,50)':eof_action=pass[vb0]")
}

func TestSynthesize_Deterministic(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{
		{Path: "/media/ad2.mp4", At: 90 * sec, Duration: 20 * sec},
		{Path: "/media/ad1.mp4", At: 30 * sec, Duration: 10 * sec},
		{Path: "/media/ad1.mp4", At: 60 * sec, Duration: 10 * sec},
	}
	j.Banners = []job.BannerOverlay{{Path: "/media/a.png", Start: 10 * sec, End: 20 * sec}}
	j.Logo = &job.MovingLogo{Path: "/media/logo.png"}

	s := New(Config{})
	caps := capability.NewSet([]string{"libx264", "h264_nvenc"}, []string{"cuda"})
	first, err := synthesize(t, s, j, caps, nil)
	require.NoError(t, err)
	second, err := synthesize(t, s, j, caps, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Args, second.Args); diff != "" {
		t.Fatalf("args differ between runs (-first +second):\n%s", diff)
	}
	// ad1 is used twice but enters once
	require.Len(t, first.Inputs, 5)
	assert.Equal(t, "/media/ad1.mp4", first.Inputs[1].Path)
	assert.Equal(t, "/media/ad2.mp4", first.Inputs[2].Path)
}

func TestSynthesize_FallbackWhenBackendMissing(t *testing.T) {
	j := baseJob()
	j.Encoding.HWAccel = "nvenc"
	j.Encoding.Quality = 24

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.True(t, plan.FallbackApplied)
	assert.Equal(t, ReasonBackendUnavailable, plan.FallbackReason)
	assert.Equal(t, "libx264", plan.Encoder)
	assert.True(t, hasSeq(plan.Args, "-c:v", "libx264", "-crf", "24"))
	assert.NotEmpty(t, plan.Warnings)
}

func TestSynthesize_StrictHWAccelRefusesFallback(t *testing.T) {
	j := baseJob()
	j.Encoding.HWAccel = "nvenc"
	j.Encoding.StrictHWAccel = true

	_, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedConfiguration))
}

func TestSynthesize_CodecUnsupportedByBackend(t *testing.T) {
	j := baseJob()
	j.Encoding.HWAccel = "videotoolbox"
	j.Encoding.VideoCodec = "av1"
	caps := capability.NewSet([]string{"h264_videotoolbox", "hevc_videotoolbox"}, []string{"videotoolbox"})

	plan, err := synthesize(t, New(Config{}), j, caps, nil)
	require.NoError(t, err)
	assert.True(t, plan.FallbackApplied)
	assert.Equal(t, ReasonCodecUnsupported, plan.FallbackReason)
	assert.Equal(t, "libsvtav1", plan.Encoder)
}

func TestSynthesize_AutoPicksPreferredBackend(t *testing.T) {
	j := baseJob()
	j.Encoding.HWAccel = "auto"
	j.Encoding.Quality = 24
	j.Encoding.Preset = "p4"
	caps := capability.NewSet([]string{"libx264", "h264_vaapi", "h264_nvenc"}, []string{"cuda", "vaapi"})

	plan, err := synthesize(t, New(Config{}), j, caps, nil)
	require.NoError(t, err)

	assert.Equal(t, "h264_nvenc", plan.Encoder)
	assert.Equal(t, capability.BackendNVENC, plan.Backend)
	assert.False(t, plan.FallbackApplied)
	assert.True(t, hasSeq(plan.Args, "-hwaccel", "cuda", "-i", "/media/source.mp4"))
	assert.True(t, hasSeq(plan.Args, "-c:v", "h264_nvenc", "-rc", "vbr", "-cq", "24", "-b:v", "0", "-preset", "p4"))
}

func TestSynthesize_AutoWithoutHardwareUsesSoftware(t *testing.T) {
	j := baseJob()
	j.Encoding.HWAccel = ""

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "libx264", plan.Encoder)
	assert.False(t, plan.FallbackApplied)

	j.Encoding.StrictHWAccel = true
	_, err = synthesize(t, New(Config{}), j, capability.Set{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestSynthesize_EncoderNameImpliesBackend(t *testing.T) {
	j := baseJob()
	j.Encoding.HWAccel = ""
	j.Encoding.VideoCodec = "hevc_vaapi"
	caps := capability.NewSet([]string{"hevc_vaapi"}, []string{"vaapi"})

	plan, err := synthesize(t, New(Config{VAAPIDevice: "/dev/dri/renderD129"}), j, caps, nil)
	require.NoError(t, err)

	assert.Equal(t, "hevc_vaapi", plan.Encoder)
	assert.True(t, hasSeq(plan.Args, "-init_hw_device", "vaapi=va:/dev/dri/renderD129", "-filter_hw_device", "va"))
	assert.True(t, hasSeq(plan.Args, "-vf", "format=nv12,hwupload"))
	assert.Less(t, indexOf(plan.Args, "-init_hw_device"), indexOf(plan.Args, "-i"))
}

func TestSynthesize_BitrateBeatsQuality(t *testing.T) {
	j := baseJob()
	j.Encoding.VideoBitrate = "4M"
	j.Encoding.Quality = 20
	j.Encoding.FrameRate = 30
	j.Encoding.AudioCodec = "copy"
	j.Encoding.ExtraArgs = []string{"-tune", "film"}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.True(t, hasSeq(plan.Args, "-c:v", "libx264", "-b:v", "4M", "-r", "30"))
	assert.NotContains(t, plan.Args, "-crf")
	assert.True(t, hasSeq(plan.Args, "-c:a", "copy"))
	assert.NotContains(t, plan.Args, "-b:a")
	assert.True(t, hasSeq(plan.Args, "-tune", "film", "-progress"))
	assert.Contains(t, strings.Join(plan.Warnings, "\n"), "quality 20 ignored")
}

func TestSynthesize_AudioCopyReencodedAfterSplice(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 60 * sec, Duration: 15 * sec}}
	j.Encoding.AudioCodec = "copy"

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)
	assert.True(t, hasSeq(plan.Args, "-c:a", "aac", "-b:a", "192k"))
	assert.Contains(t, strings.Join(plan.Warnings, "\n"), "audio copy is impossible")
}

func TestSynthesize_SilentAdGetsGeneratedAudio(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{{Path: "/media/silent.mp4", At: 0, Duration: 5 * sec, NoAudio: true}}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)
	// ad at 0 leaves no leading source segment
	assert.Contains(t, plan.FilterGraph, "anullsrc=r=48000:cl=stereo,atrim=duration=5,")
	assert.Contains(t, plan.FilterGraph, "concat=n=2:v=1:a=1")

	j.Ads[0].Duration = 0
	_, err = synthesize(t, New(Config{}), j, capability.Set{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestSynthesize_SourceWithoutAudio(t *testing.T) {
	j := baseJob()
	j.SourceInfo.NoAudio = true
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 60 * sec, Duration: 15 * sec}}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.FilterGraph, "[v0][v1][v2]concat=n=3:v=1:a=0[vsplice]")
	assert.NotContains(t, plan.FilterGraph, "atrim")
	assert.NotContains(t, plan.Args, "-c:a")
}

func TestSynthesize_SpliceNeedsGeometry(t *testing.T) {
	j := baseJob()
	j.SourceInfo.Width, j.SourceInfo.Height = 0, 0
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 60 * sec, Duration: 15 * sec}}

	_, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	j.Encoding.Width, j.Encoding.Height = 1280, 720
	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.FilterGraph, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2")
}

func TestSynthesize_ConcatListForLongSplices(t *testing.T) {
	mgr, err := artifact.NewManager(t.TempDir())
	require.NoError(t, err)
	scope := mgr.Scope("job-1")
	defer scope.Release()

	j := baseJob()
	j.Source = "/media/it's.mp4"
	j.Ads = []job.AdInsertion{
		{Path: "/media/ad.mp4", At: 30 * sec, Duration: 10 * sec},
		{Path: "/media/ad.mp4", At: 60 * sec, Duration: 10 * sec},
	}

	plan, err := synthesize(t, New(Config{InlineConcatLimit: 3}), j, capability.Set{}, scope)
	require.NoError(t, err)

	assert.True(t, plan.ConcatList)
	require.Len(t, plan.Artifacts, 1)
	assert.Equal(t, RoleConcat, plan.Inputs[0].Role)
	assert.True(t, hasSeq(plan.Args, "-f", "concat", "-safe", "0", "-i", plan.Artifacts[0].Path))
	assert.NotContains(t, plan.FilterGraph, "concat=")
	assert.True(t, hasSeq(plan.Args, "-map", "[vout]", "-map", "0:a:0"))

	data, err := os.ReadFile(plan.Artifacts[0].Path)
	require.NoError(t, err)
	want := "ffconcat version 1.0\n" +
		"file '/media/it'\\''s.mp4'\n" +
		"outpoint 30\n" +
		"file '/media/ad.mp4'\n" +
		"duration 10\n" +
		"file '/media/it'\\''s.mp4'\n" +
		"inpoint 30\n" +
		"outpoint 60\n" +
		"file '/media/ad.mp4'\n" +
		"duration 10\n" +
		"file '/media/it'\\''s.mp4'\n" +
		"inpoint 60\n" +
		"outpoint 120\n"
	assert.Equal(t, want, string(data))
	assert.Len(t, mgr.Live("job-1"), 1)
}

func TestSynthesize_ConcatListNeedsScope(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 30 * sec, Duration: 10 * sec}}

	_, err := synthesize(t, New(Config{InlineConcatLimit: 2}), j, capability.Set{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestSynthesize_MovingLogo(t *testing.T) {
	j := baseJob()
	j.SourceInfo.Duration = 100 * sec
	j.Logo = &job.MovingLogo{Path: "/media/logo.png"}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.Contains(t, plan.FilterGraph, "[1:v:0]scale=-2:90,format=rgba,colorchannelmixer=aa=0.5[lg]")
	assert.Contains(t, plan.FilterGraph, "[0:v:0][lg]overlay=x='if(lt(mod(t,50),12.5)")
	assert.Contains(t, plan.FilterGraph, ":shortest=1[vlogo];[vlogo]format=yuv420p[vout]")
	assert.True(t, plan.Inputs[1].Image)
	assert.Equal(t, RoleLogo, plan.Inputs[1].Role)
}

func TestSynthesize_LogoWithoutGeometryWarns(t *testing.T) {
	j := baseJob()
	j.SourceInfo.Width, j.SourceInfo.Height = 0, 0
	j.Logo = &job.MovingLogo{Path: "/media/logo.webm", Motion: job.MotionStatic, Opacity: 1}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)
	assert.Contains(t, plan.FilterGraph, "[0:v:0][1:v:0]overlay=x=0:y=0:shortest=1[vlogo]")
	assert.True(t, hasSeq(plan.Args, "-stream_loop", "-1", "-i", "/media/logo.webm"))
	assert.Contains(t, strings.Join(plan.Warnings, "\n"), "logo kept at native size")
}

func TestSynthesize_TrackEditsFollowOutputLayout(t *testing.T) {
	j := baseJob()
	j.Output = "/media/out.mkv"
	j.Banners = []job.BannerOverlay{{Path: "/media/a.png", Start: 0, End: 5 * sec}}
	j.Tracks = []job.TrackDescriptor{
		{Index: 0, Kind: job.KindVideo, Codec: "h264"},
		{Index: 1, Kind: job.KindAudio, Codec: "ac3"},
		{Index: 2, Kind: job.KindAudio, Codec: "aac"},
		{Index: 3, Kind: job.KindData, Codec: "bin_data"},
		{Index: 4, Kind: job.KindSubtitle, Codec: "subrip"},
	}
	j.TrackEdits = []job.TrackEdit{
		{StreamIndex: 2, Title: "Commentary", Language: "ENG"},
		{StreamIndex: 4, Language: "deu"},
		{StreamIndex: 3, Title: "gone"},
	}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.True(t, hasSeq(plan.Args, "-map", "[vout]", "-map", "0:1", "-map", "0:2", "-map", "0:4"))
	assert.True(t, hasSeq(plan.Args, "-c:s", "copy"))
	assert.True(t, hasSeq(plan.Args, "-map_metadata", "0",
		"-metadata:s:2", "title=Commentary", "-metadata:s:2", "language=eng",
		"-metadata:s:3", "language=deu"))
	assert.NotContains(t, plan.Args, "-movflags")

	warnings := strings.Join(plan.Warnings, "\n")
	assert.Contains(t, warnings, "data track 3 dropped")
	assert.Contains(t, warnings, "track edit for stream 3 skipped")
}

func TestSynthesize_SpliceDropsExtraTracks(t *testing.T) {
	j := baseJob()
	j.Ads = []job.AdInsertion{{Path: "/media/ad.mp4", At: 60 * sec, Duration: 15 * sec}}
	j.Tracks = []job.TrackDescriptor{
		{Index: 0, Kind: job.KindVideo},
		{Index: 1, Kind: job.KindAudio},
		{Index: 2, Kind: job.KindSubtitle, Codec: "mov_text"},
	}
	j.TrackEdits = []job.TrackEdit{{StreamIndex: 1, Language: "fra"}, {StreamIndex: 2, Title: "Subs"}}

	plan, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	require.NoError(t, err)

	assert.True(t, hasSeq(plan.Args, "-metadata:s:1", "language=fra"))
	assert.NotContains(t, plan.Args, "title=Subs")
	warnings := strings.Join(plan.Warnings, "\n")
	assert.Contains(t, warnings, "1 source tracks dropped")
	assert.Contains(t, warnings, "track edit for stream 2 skipped")
}

func TestSynthesize_UnknownCodecRejected(t *testing.T) {
	j := baseJob()
	j.Encoding.VideoCodec = "mpeg2video"
	_, err := synthesize(t, New(Config{}), j, capability.Set{}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestSynthesize_CancelledContext(t *testing.T) {
	j := baseJob()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Synthesize(ctx, Input{Job: j, Timeline: resolve(t, j)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandPlan_String(t *testing.T) {
	p := &CommandPlan{
		Binary: "ffmpeg",
		Args:   []string{"-i", "/media/my file.mp4", "-filter_complex", "[0:v]overlay=enable='between(t,1,2)'[v]", "-metadata:s:1", "title=", "out.mp4"},
	}
	assert.Equal(t,
		`ffmpeg -i '/media/my file.mp4' -filter_complex '[0:v]overlay=enable='\''between(t,1,2)'\''[v]' -metadata:s:1 title= out.mp4`,
		p.String())
	assert.Equal(t, "''", shellQuote(""))
}
