// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package runner

import (
	"bytes"
	"sync"
)

const (
	defaultRingLines = 20
	maxLineBytes     = 4096
)

// LineRing keeps the last lines written to it. It is an io.Writer for
// process stderr and is safe for concurrent use.
type LineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int // next write position
	count   int
	partial []byte // unterminated tail of the last write
}

// NewLineRing creates a ring holding capacity lines.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = defaultRingLines
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Write splits p on CR or LF. Text after the last terminator is kept until
// the next write completes it. Empty lines are dropped.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := append(r.partial, p...)
	for {
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		r.push(data[:i])
		data = data[i+1:]
	}
	if len(data) > maxLineBytes {
		r.push(data)
		data = nil
	}
	r.partial = append([]byte(nil), data...)
	return len(p), nil
}

func (r *LineRing) push(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	r.lines[r.head] = string(line)
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns up to n lines, oldest first. An unterminated tail counts as
// the newest line.
func (r *LineRing) LastN(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ordered := make([]string, 0, r.count+1)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		ordered = append(ordered, r.lines[(start+i)%len(r.lines)])
	}
	if tail := bytes.TrimSpace(r.partial); len(tail) > 0 {
		ordered = append(ordered, string(tail))
	}
	if n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}
