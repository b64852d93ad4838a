// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// SetProber produces a capability Set.
type SetProber interface {
	Probe(ctx context.Context) Set
}

// Session probes once and serves the cached Set afterwards. Concurrent first
// callers share one probe. Pass the session explicitly instead of keeping
// process-wide state.
type Session struct {
	prober SetProber
	group  singleflight.Group

	mu    sync.RWMutex
	set   Set
	ready bool
}

// NewSession wraps p.
func NewSession(p SetProber) *Session {
	return &Session{prober: p}
}

// Capabilities returns the session's Set, probing on first use. If ctx ends
// before the first probe finishes, the empty Set is returned and nothing is cached.
func (s *Session) Capabilities(ctx context.Context) Set {
	s.mu.RLock()
	if s.ready {
		set := s.set
		s.mu.RUnlock()
		return set
	}
	s.mu.RUnlock()

	ch := s.group.DoChan("probe", func() (any, error) {
		// detached: one caller giving up must not void the shared probe
		set := s.prober.Probe(context.WithoutCancel(ctx))
		s.mu.Lock()
		s.set, s.ready = set, true
		s.mu.Unlock()
		return set, nil
	})

	select {
	case <-ctx.Done():
		return Set{}
	case res := <-ch:
		return res.Val.(Set)
	}
}
