// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCodec(t *testing.T) {
	tests := []struct {
		in   string
		want Codec
		ok   bool
	}{
		{"", CodecH264, true},
		{"H264", CodecH264, true},
		{"libx264", CodecH264, true},
		{"h265", CodecHEVC, true},
		{"hevc_nvenc", CodecHEVC, true},
		{"av1", CodecAV1, true},
		{"libsvtav1", CodecAV1, true},
		{"mpeg2video", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCodec(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncoderRegistry(t *testing.T) {
	assert.Equal(t, "libx264", SoftwareEncoder(CodecH264))
	enc, ok := HardwareEncoder(CodecHEVC, BackendVAAPI)
	assert.True(t, ok)
	assert.Equal(t, "hevc_vaapi", enc)

	_, ok = HardwareEncoder(CodecAV1, BackendVideoToolbox)
	assert.False(t, ok)

	assert.Equal(t, BackendQSV, BackendOf("av1_qsv"))
	assert.Equal(t, BackendNone, BackendOf("libx265"))
	assert.Equal(t, BackendNone, BackendOf("h264_mf"))
}

func TestParseBackend(t *testing.T) {
	b, ok := ParseBackend("CUDA")
	assert.True(t, ok)
	assert.Equal(t, BackendNVENC, b)

	_, ok = ParseBackend("auto")
	assert.False(t, ok)
}
