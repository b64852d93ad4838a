// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package artifact owns temporary files produced while preparing a job.
//
// Paths are reserved up front and removed together when the job that owns
// them ends. Removal failures are logged and counted, never returned to the job.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/adsplice/internal/log"
	"github.com/ManuGH/adsplice/internal/metrics"
)

// Kind labels what an artifact holds.
type Kind string

// KindConcatList holds an ffconcat segment list.
const KindConcatList Kind = "concat"

// ErrNoJob is returned when an artifact is requested without an owning job.
var ErrNoJob = errors.New("artifact: job id required")

// Artifact is a reserved temp path owned by one job.
type Artifact struct {
	Path  string
	Kind  Kind
	JobID string
}

// Manager tracks live artifacts per job. Safe for concurrent use.
type Manager struct {
	dir    string
	logger zerolog.Logger
	remove func(string) error

	mu   sync.Mutex
	live map[string][]Artifact
}

// NewManager creates dir if needed and returns a manager rooted there.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "adsplice")
	}
	// #nosec G301 -- scratch dir, owner only
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Manager{
		dir:    dir,
		logger: log.WithComponent("artifact"),
		remove: os.Remove,
		live:   make(map[string][]Artifact),
	}, nil
}

// Dir returns the directory artifacts are allocated in.
func (m *Manager) Dir() string { return m.dir }

// Allocate reserves a unique path for jobID. The file is not created.
func (m *Manager) Allocate(jobID string, kind Kind, ext string) (Artifact, error) {
	if jobID == "" {
		return Artifact{}, ErrNoJob
	}
	a := Artifact{
		Path:  filepath.Join(m.dir, fmt.Sprintf("%s-%s%s", kind, uuid.NewString(), ext)),
		Kind:  kind,
		JobID: jobID,
	}

	m.mu.Lock()
	m.live[jobID] = append(m.live[jobID], a)
	m.mu.Unlock()

	metrics.ArtifactAllocated()
	m.logger.Debug().Str(log.FieldJobID, jobID).Str(log.FieldKind, string(kind)).Str(log.FieldPath, a.Path).Msg("artifact allocated")
	return a, nil
}

// WriteFile materializes a with data atomically.
func (m *Manager) WriteFile(a Artifact, data []byte) (err error) {
	pending, err := renameio.NewPendingFile(a.Path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending %s file: %w", a.Kind, err)
	}
	defer func() {
		if cerr := pending.Cleanup(); cerr != nil {
			m.logger.Debug().Err(cerr).Str(log.FieldPath, a.Path).Msg("cleanup pending artifact")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write %s data: %w", a.Kind, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s file: %w", a.Kind, err)
	}
	return nil
}

// Live returns a copy of the artifacts currently held by jobID.
func (m *Manager) Live(jobID string) []Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Artifact(nil), m.live[jobID]...)
}

// ReleaseAll removes every artifact of jobID and returns how many were
// removed cleanly. A second call for the same job is a no-op.
func (m *Manager) ReleaseAll(jobID string) int {
	m.mu.Lock()
	owned := m.live[jobID]
	delete(m.live, jobID)
	m.mu.Unlock()

	removed := 0
	for _, a := range owned {
		err := m.remove(a.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn().Err(err).Str(log.FieldJobID, jobID).Str(log.FieldPath, a.Path).Msg("failed to remove temp artifact")
			metrics.ArtifactReleased(false)
			continue
		}
		metrics.ArtifactReleased(true)
		removed++
	}
	if len(owned) > 0 {
		m.logger.Debug().Str(log.FieldJobID, jobID).Int("count", removed).Msg("artifacts released")
	}
	return removed
}

// Scope binds the manager to one job.
func (m *Manager) Scope(jobID string) *Scope {
	return &Scope{m: m, jobID: jobID}
}

// Scope is the per-job view handed to the synthesizer and the runner.
type Scope struct {
	m     *Manager
	jobID string
	once  sync.Once
}

// JobID returns the owning job.
func (s *Scope) JobID() string { return s.jobID }

// Allocate reserves a path for this job.
func (s *Scope) Allocate(kind Kind, ext string) (Artifact, error) {
	return s.m.Allocate(s.jobID, kind, ext)
}

// WriteFile materializes a atomically.
func (s *Scope) WriteFile(a Artifact, data []byte) error {
	return s.m.WriteFile(a, data)
}

// Release removes the job's artifacts. Only the first call has effect.
func (s *Scope) Release() {
	s.once.Do(func() { s.m.ReleaseAll(s.jobID) })
}
