// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/adsplice/internal/job"
)

// Subtitle codecs that are bitmaps and cannot become mov_text.
var bitmapSubtitles = map[string]bool{
	"hdmv_pgs_subtitle": true,
	"dvd_subtitle":      true,
	"dvb_subtitle":      true,
	"xsub":              true,
}

// outStream is one mapped output stream, in output order.
type outStream struct {
	mapArg string // -map argument
	kind   job.TrackKind
	source int // source stream index, -1 when a wildcard map covers it
}

// mapStreams decides the output stream layout. A spliced output carries
// exactly one video and at most one audio stream.
func (b *builder) mapStreams(video string, audio []string) []outStream {
	tracks := b.job.Tracks
	firstVideo, firstAudio := firstOfKind(tracks, job.KindVideo, 0), firstOfKind(tracks, job.KindAudio, 1)

	streams := []outStream{{mapArg: video, kind: job.KindVideo, source: firstVideo}}
	if b.tl.HasSplices() {
		for _, a := range audio {
			streams = append(streams, outStream{mapArg: a, kind: job.KindAudio, source: firstAudio})
		}
		if dropped := len(tracks) - len(streams); len(tracks) > 0 && dropped > 0 {
			b.warnf("%d source tracks dropped: a spliced output carries one video and one audio stream", dropped)
		}
		return streams
	}

	if len(tracks) == 0 {
		return append(streams,
			outStream{mapArg: "0:a?", kind: job.KindAudio, source: -1},
			outStream{mapArg: "0:s?", kind: job.KindSubtitle, source: -1},
		)
	}

	for _, t := range tracks {
		switch t.Kind {
		case job.KindVideo:
			if t.Index != firstVideo {
				b.warnf("video track %d dropped: only the first video track is encoded", t.Index)
			}
		case job.KindAudio:
			streams = append(streams, outStream{mapArg: "0:" + strconv.Itoa(t.Index), kind: job.KindAudio, source: t.Index})
		case job.KindSubtitle:
			if b.movText() && bitmapSubtitles[strings.ToLower(t.Codec)] {
				b.warnf("subtitle track %d dropped: %s cannot be stored in %s", t.Index, t.Codec, b.container)
				continue
			}
			streams = append(streams, outStream{mapArg: "0:" + strconv.Itoa(t.Index), kind: job.KindSubtitle, source: t.Index})
		default:
			b.warnf("%s track %d dropped", t.Kind, t.Index)
		}
	}
	return streams
}

func firstOfKind(tracks []job.TrackDescriptor, kind job.TrackKind, fallback int) int {
	for _, t := range tracks {
		if t.Kind == kind {
			return t.Index
		}
	}
	return fallback
}

func hasKind(streams []outStream, kind job.TrackKind) bool {
	for _, s := range streams {
		if s.kind == kind {
			return true
		}
	}
	return false
}

func (b *builder) movText() bool {
	return b.container == "mp4" || b.container == "mov"
}

func (b *builder) audioCodecArgs(streams []outStream) []string {
	if !b.audio || !hasKind(streams, job.KindAudio) {
		return nil
	}
	codec := strings.ToLower(b.job.Encoding.AudioCodec)
	if codec == "" {
		codec = b.cfg.AudioCodec
	}
	if codec == "copy" && b.audioFiltered {
		codec = defaultAudioCodec
		if b.cfg.AudioCodec != "copy" {
			codec = b.cfg.AudioCodec
		}
		b.warnf("audio copy is impossible after splicing; encoding with %s", codec)
	}
	args := []string{"-c:a", codec}
	if codec == "copy" {
		return args
	}
	bitrate := b.job.Encoding.AudioBitrate
	if bitrate == "" {
		bitrate = b.cfg.AudioBitrate
	}
	return append(args, "-b:a", bitrate)
}

func (b *builder) subtitleCodecArgs(streams []outStream) []string {
	if !hasKind(streams, job.KindSubtitle) {
		return nil
	}
	if b.movText() {
		return []string{"-c:s", "mov_text"}
	}
	return []string{"-c:s", "copy"}
}

// metadataArgs keeps global metadata and applies track edits by output
// stream index, once the final layout is known.
func (b *builder) metadataArgs(streams []outStream) []string {
	args := []string{"-map_metadata", "0"}
	wildcard := len(b.job.Tracks) == 0 && !b.tl.HasSplices()
	for _, e := range b.job.TrackEdits {
		out := outputIndex(streams, e.StreamIndex)
		if out < 0 && wildcard {
			// without descriptors, source order is assumed to survive
			out = e.StreamIndex
		}
		if out < 0 {
			b.warnf("track edit for stream %d skipped: stream is not in the output", e.StreamIndex)
			continue
		}
		flag := fmt.Sprintf("-metadata:s:%d", out)
		if e.Title != "" {
			args = append(args, flag, "title="+e.Title)
		}
		if e.Language != "" {
			args = append(args, flag, "language="+strings.ToLower(e.Language))
		}
	}
	return args
}

func outputIndex(streams []outStream, source int) int {
	for i, s := range streams {
		if s.source >= 0 && s.source == source {
			return i
		}
	}
	return -1
}
