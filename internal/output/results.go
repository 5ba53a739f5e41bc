package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// Result file names inside the output directory.
const (
	CSVFile  = "mqtt_bench_results.csv"
	JSONFile = "mqtt_bench_results.jsonl"
)

// Results persists every report to both the CSV and JSON Lines files.
type Results struct {
	csv  *CSVWriter
	json *JSONWriter
}

// OpenResults creates dir if needed and opens both result files.
func OpenResults(dir string) (*Results, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	csvPath := filepath.Join(dir, CSVFile)
	cw, err := NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}

	jsonPath := filepath.Join(dir, JSONFile)
	jw, err := NewJSONWriter(jsonPath)
	if err != nil {
		cw.Close()
		return nil, fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}
	return &Results{csv: cw, json: jw}, nil
}

// Write appends r to both files.
func (r *Results) Write(rep model.Report) error {
	if err := r.csv.Write(rep); err != nil {
		return fmt.Errorf("failed to write result to CSV: %w", err)
	}
	if err := r.json.Write(rep); err != nil {
		return fmt.Errorf("failed to write result to JSON: %w", err)
	}
	return nil
}

// Close closes both files.
func (r *Results) Close() error {
	return errors.Join(r.csv.Close(), r.json.Close())
}
