// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// ProgressEvent is one block of ffmpeg's -progress output.
type ProgressEvent struct {
	Processed time.Duration // output time written so far
	Speed     float64       // x realtime, 0 when unknown
	Frame     int64
	FPS       float64
	Final     bool // progress=end
}

// parseProgress reads key=value blocks from r and calls emit at every
// progress= line, in arrival order. Malformed lines and values are dropped
// and leave the previous value in place. It stops when emit returns false
// or r is exhausted.
func parseProgress(r io.Reader, emit func(ProgressEvent) bool) {
	scanner := bufio.NewScanner(r)
	var cur ProgressEvent

	for scanner.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch key {
		case "frame":
			if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
				cur.Frame = v
			}
		case "fps":
			if v, err := strconv.ParseFloat(val, 64); err == nil && v >= 0 {
				cur.FPS = v
			}
		case "out_time_us", "out_time_ms": // both are microseconds
			if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
				cur.Processed = time.Duration(v) * time.Microsecond
			}
		case "out_time":
			if d, ok := parseClock(val); ok {
				cur.Processed = d
			}
		case "speed":
			if v, err := strconv.ParseFloat(strings.TrimSuffix(val, "x"), 64); err == nil && v >= 0 {
				cur.Speed = v
			}
		case "progress":
			cur.Final = val == "end"
			if !emit(cur) {
				return
			}
		}
	}
}

// parseClock parses HH:MM:SS.ffffff.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || sec < 0 {
		return 0, false
	}
	total := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second))
	return total, true
}
