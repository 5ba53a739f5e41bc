/*
PURPOSE:
  Builds the structured logger for mqtt-bench.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. Not spammy.
  - Log level and format selectable from config or flags.

  Implementation-discovered:
  - Containerized runs prefer JSON records for log collectors.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (root.go)
  - The returned logger is injected into engine.Runner; there is no global.

ERROR HANDLING:
  - Unknown level or format returns an error.

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).

USAGE:
  logger, err := output.NewLogger(os.Stdout, "info", "text")

SELF-HEALING INSTRUCTIONS:
  - Ensure Go 1.21+ is used.

RELATED FILES:
  - internal/config/config.go (LogConfig)

MAINTENANCE:
  - Add handlers here (e.g. OTLP logs) when needed.
*/

package output

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a text or JSON logger writing to w.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
