// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package synth

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConfiguration is returned when no valid command can be built
// for the requested combination of inputs, codecs and hardware.
var ErrUnsupportedConfiguration = errors.New("unsupported configuration")

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedConfiguration, fmt.Sprintf(format, args...))
}
