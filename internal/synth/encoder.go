// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/adsplice/internal/capability"
	"github.com/ManuGH/adsplice/internal/job"
	"github.com/ManuGH/adsplice/internal/metrics"
)

// Fallback reasons reported on plans.
const (
	ReasonBackendUnavailable = "backend_unavailable"
	ReasonCodecUnsupported   = "codec_unsupported"
)

const (
	hwAuto = "auto"
	hwNone = "none"
)

type encoderChoice struct {
	codec    capability.Codec
	encoder  string
	backend  capability.Backend
	fallback bool
	reason   string
	warnings []string
}

// selectEncoder resolves the hardware preference against caps.
func (s *Synthesizer) selectEncoder(p job.EncodingParams, caps capability.Set) (encoderChoice, error) {
	codec, ok := capability.ParseCodec(p.VideoCodec)
	if !ok {
		return encoderChoice{}, unsupported("unknown video codec %q", p.VideoCodec)
	}
	software := encoderChoice{codec: codec, encoder: capability.SoftwareEncoder(codec)}

	requested := strings.ToLower(strings.TrimSpace(p.HWAccel))
	if requested == "" {
		requested = hwAuto
		vc := strings.ToLower(strings.TrimSpace(p.VideoCodec))
		if b := capability.BackendOf(vc); b != capability.BackendNone {
			requested = string(b)
		} else if vc == software.encoder {
			requested = hwNone
		}
	}

	switch requested {
	case hwNone:
		return software, nil
	case hwAuto:
		for _, b := range s.cfg.HWAccelPreference {
			enc, ok := capability.HardwareEncoder(codec, b)
			if ok && caps.Has(b) && caps.HasEncoder(enc) {
				return encoderChoice{codec: codec, encoder: enc, backend: b}, nil
			}
		}
		if p.StrictHWAccel {
			return encoderChoice{}, unsupported("no usable hardware backend for %s", codec)
		}
		metrics.RecordFallback(hwAuto, "no_hw_detected")
		return software, nil
	}

	backend, ok := capability.ParseBackend(requested)
	if !ok {
		return encoderChoice{}, unsupported("unknown hardware backend %q", p.HWAccel)
	}
	enc, ok := capability.HardwareEncoder(codec, backend)
	reason := ""
	switch {
	case !ok:
		reason = ReasonCodecUnsupported
	case !caps.Has(backend) || !caps.HasEncoder(enc):
		reason = ReasonBackendUnavailable
	default:
		return encoderChoice{codec: codec, encoder: enc, backend: backend}, nil
	}

	if p.StrictHWAccel {
		if reason == ReasonCodecUnsupported {
			return encoderChoice{}, unsupported("%s cannot encode %s and software fallback is disabled", backend, codec)
		}
		return encoderChoice{}, unsupported("%s is not available and software fallback is disabled", backend)
	}
	metrics.RecordFallback(string(backend), reason)
	software.fallback = true
	software.reason = reason
	software.warnings = []string{fmt.Sprintf("%s requested but %s; encoding with %s", backend, strings.ReplaceAll(reason, "_", " "), software.encoder)}
	return software, nil
}

// videoCodecArgs emits the encoder with its rate control and preset.
func (b *builder) videoCodecArgs() []string {
	p := b.job.Encoding
	args := []string{"-c:v", b.enc.encoder}

	switch {
	case p.VideoBitrate != "":
		args = append(args, "-b:v", p.VideoBitrate)
		if p.Quality > 0 {
			b.warnf("quality %d ignored: video bitrate %s takes priority", p.Quality, p.VideoBitrate)
		}
	case p.Quality > 0:
		args = append(args, qualityArgs(b.enc.backend, p.Quality)...)
	}

	if p.Preset != "" {
		switch b.enc.backend {
		case capability.BackendNone, capability.BackendNVENC, capability.BackendQSV:
			args = append(args, "-preset", p.Preset)
		default:
			b.warnf("preset %q ignored: %s has no presets", p.Preset, b.enc.encoder)
		}
	}
	if p.FrameRate > 0 {
		args = append(args, "-r", strconv.FormatFloat(p.FrameRate, 'f', -1, 64))
	}
	return args
}

// qualityArgs maps a constant quality factor to each encoder family's flags.
func qualityArgs(backend capability.Backend, q int) []string {
	v := strconv.Itoa(q)
	switch backend {
	case capability.BackendNVENC:
		return []string{"-rc", "vbr", "-cq", v, "-b:v", "0"}
	case capability.BackendQSV:
		return []string{"-global_quality", v}
	case capability.BackendVAAPI:
		return []string{"-rc_mode", "CQP", "-qp", v}
	case capability.BackendVideoToolbox:
		return []string{"-q:v", v}
	case capability.BackendAMF:
		return []string{"-rc", "cqp", "-qp_i", v, "-qp_p", v}
	default:
		return []string{"-crf", v}
	}
}
