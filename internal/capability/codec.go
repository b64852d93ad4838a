// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import "strings"

// Codec is a canonical video codec name.
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecHEVC Codec = "hevc"
	CodecAV1  Codec = "av1"
)

type codecInfo struct {
	Software string
	Encoders map[Backend]string
	Aliases  []string
}

var codecRegistry = map[Codec]codecInfo{
	CodecH264: {
		Software: "libx264",
		Encoders: map[Backend]string{
			BackendNVENC:        "h264_nvenc",
			BackendQSV:          "h264_qsv",
			BackendVAAPI:        "h264_vaapi",
			BackendVideoToolbox: "h264_videotoolbox",
			BackendAMF:          "h264_amf",
		},
		Aliases: []string{"h264", "avc", "avc1", "h.264", "x264"},
	},
	CodecHEVC: {
		Software: "libx265",
		Encoders: map[Backend]string{
			BackendNVENC:        "hevc_nvenc",
			BackendQSV:          "hevc_qsv",
			BackendVAAPI:        "hevc_vaapi",
			BackendVideoToolbox: "hevc_videotoolbox",
			BackendAMF:          "hevc_amf",
		},
		Aliases: []string{"hevc", "h265", "h.265", "hvc1", "x265"},
	},
	CodecAV1: {
		Software: "libsvtav1",
		Encoders: map[Backend]string{
			BackendNVENC: "av1_nvenc",
			BackendQSV:   "av1_qsv",
			BackendVAAPI: "av1_vaapi",
			BackendAMF:   "av1_amf",
		},
		Aliases: []string{"av1", "av01", "svtav1"},
	},
}

// ParseCodec resolves a codec or encoder name to its canonical codec.
// Empty input means h264.
func ParseCodec(s string) (Codec, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CodecH264, true
	}
	for c, info := range codecRegistry {
		if s == info.Software {
			return c, true
		}
		for _, a := range info.Aliases {
			if s == a {
				return c, true
			}
		}
		for _, e := range info.Encoders {
			if s == e {
				return c, true
			}
		}
	}
	return "", false
}

// SoftwareEncoder returns the CPU encoder for c.
func SoftwareEncoder(c Codec) string {
	return codecRegistry[c].Software
}

// HardwareEncoder returns the encoder of c for backend b, if the registry knows one.
func HardwareEncoder(c Codec, b Backend) (string, bool) {
	e, ok := codecRegistry[c].Encoders[b]
	return e, ok
}

// BackendOf returns the backend an encoder name belongs to, or BackendNone for software.
func BackendOf(encoder string) Backend {
	return backendOfEncoder(encoder)
}
