/*
PURPOSE:
  Writes benchmark reports to a JSON Lines file (NDJSON).
  One line per completed run, appended across repeats.

REQUIREMENTS:
  User-specified:
  - JSON output for easier parsing.

  Implementation-discovered:
  - JSON Lines is better for streaming/logging than a single large array (append-friendly).
  - Repeated runs in one process must not truncate earlier results.

ARCHITECTURE INTEGRATION:
  - Called by: internal/output (Results), internal/cli
  - Consumes: internal/model.Report

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w, err := output.NewJSONWriter("results.jsonl")
  w.Write(report)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if we switch to plain JSON array (not recommended for streaming).
*/

package output

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// JSONWriter handles writing reports to a JSON Lines file.
type JSONWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens path for appending, creating it if needed.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &JSONWriter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Write writes a single report as a JSON line.
func (jw *JSONWriter) Write(r model.Report) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(r)
}

// Close closes the underlying file.
func (jw *JSONWriter) Close() error {
	return jw.file.Close()
}
