// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"
	"strings"
)

var logLevels = map[string]string{
	"trace":   "trace",
	"debug":   "debug",
	"info":    "info",
	"warn":    "warn",
	"warning": "warn",
	"error":   "error",
}

// ParseLogLevel normalizes a user supplied level name. Matching ignores case
// and surrounding space; "warning" is accepted for "warn".
func ParseLogLevel(s string) (string, error) {
	if lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}
