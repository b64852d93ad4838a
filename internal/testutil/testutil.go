// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testutil holds stand-ins for the ffmpeg toolchain used across tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/adsplice/internal/synth"
)

// ScriptPlan returns a plan that runs script with sh instead of ffmpeg.
func ScriptPlan(jobID, script string) *synth.CommandPlan {
	return &synth.CommandPlan{JobID: jobID, Binary: "sh", Args: []string{"-c", script}}
}

// FakeBinary writes an executable shell script named name into a temp dir
// and returns its path. The script sees the arguments it was called with.
func FakeBinary(t *testing.T, name, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	// #nosec G306 -- test fixture must be executable
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake %s: %v", name, err)
	}
	return path
}
