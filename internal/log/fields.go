// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldJobID = "job_id"
	FieldRunID = "run_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCommand   = "command"
	FieldExitCode  = "exit_code"
	FieldOutcome   = "outcome"

	// Media fields
	FieldCodec    = "codec"
	FieldEncoder  = "encoder"
	FieldBackend  = "backend"
	FieldDevice   = "device"
	FieldDuration = "duration_s"

	// Path fields
	FieldPath       = "path"
	FieldOutputPath = "output_path"
	FieldKind       = "kind"
)
