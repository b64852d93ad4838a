// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTimecode is returned for values that are neither seconds nor [HH:]MM:SS[.fff].
var ErrInvalidTimecode = errors.New("invalid timecode")

// ParseTimecode accepts plain seconds ("75.5"), MM:SS or HH:MM:SS with an
// optional fractional part. Negative values are rejected.
func ParseTimecode(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidTimecode)
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
	}

	var total float64
	for i, p := range parts {
		last := i == len(parts)-1
		if p == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
		}
		var (
			v   float64
			err error
		)
		if last {
			v, err = strconv.ParseFloat(p, 64)
		} else {
			var n int
			n, err = strconv.Atoi(p)
			v = float64(n)
		}
		if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimecode, s)
		}
		// minutes and seconds fields stay below 60 once a larger unit is present
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: %q field out of range", ErrInvalidTimecode, s)
		}
		total = total*60 + v
	}
	return time.Duration(math.Round(total * float64(time.Second))), nil
}

// FormatTimecode renders d as HH:MM:SS.mmm.
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	sec := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, ms%1000)
}

// Timecode is a duration that decodes from YAML seconds or clock notation.
type Timecode time.Duration

// Duration returns t as a time.Duration.
func (t Timecode) Duration() time.Duration { return time.Duration(t) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timecode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: %w: expected scalar", node.Line, ErrInvalidTimecode)
	}
	d, err := ParseTimecode(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = Timecode(d)
	return nil
}
