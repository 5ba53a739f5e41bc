package output

import (
	"fmt"
	"io"
	"log/slog"
)

// ConsoleProgress redraws a single "Progress: N%" line on w and ends it with
// a newline at 100.
func ConsoleProgress(w io.Writer) func(percent int) {
	return func(percent int) {
		fmt.Fprintf(w, "\rProgress: %d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(w)
		}
	}
}

// LogProgress reports progress as debug records, for non-interactive runs.
func LogProgress(logger *slog.Logger) func(percent int) {
	return func(percent int) {
		logger.Debug("Progress", "percent", percent)
	}
}
