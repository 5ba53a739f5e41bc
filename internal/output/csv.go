/*
PURPOSE:
  Writes benchmark reports to a CSV file.
  Ensures data integrity by flushing writes immediately.

REQUIREMENTS:
  User-specified:
  - Output to CSV.
  - Keep file handle open for flushing between repeated runs.

  Implementation-discovered:
  - Appending to an existing file must not repeat the header.

ARCHITECTURE INTEGRATION:
  - Called by: internal/output (Results), internal/cli
  - Consumes: internal/model.Report

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Mutex guards the writer.

USAGE:
  w, err := output.NewCSVWriter("results.csv")
  w.Write(report)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Write() mapping when Report struct changes.
*/

package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// CSVHeader is the first row of every results file.
var CSVHeader = []string{
	"timestamp", "server", "mqtt_version", "clients", "messages_per_client",
	"message_size", "qos", "retain", "messages_sent", "failed",
	"publish_s", "connect_s", "disconnect_s", "throughput",
	"success_rate", "loss_rate", "bytes_sent", "data_sent",
	"connect_failures", "disconnect_failures",
}

// CSVWriter handles writing reports to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter opens path for appending. The header is written only when
// the file is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(CSVHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Write writes a single report row. It is thread-safe.
func (cw *CSVWriter) Write(r model.Report) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.StartedAt.Format(time.RFC3339),
		r.Settings.Server,
		r.Settings.MQTTVersion,
		strconv.Itoa(r.Clients),
		strconv.Itoa(r.Settings.MessageCount),
		strconv.Itoa(r.Settings.MessageSize),
		strconv.Itoa(r.Settings.QoS),
		strconv.FormatBool(r.Settings.Retain),
		strconv.Itoa(r.MessagesSent),
		strconv.Itoa(r.Failed),
		fmt.Sprintf("%.4f", r.PublishDuration.Seconds()),
		fmt.Sprintf("%.4f", r.ConnectDuration.Seconds()),
		fmt.Sprintf("%.4f", r.DisconnectDuration.Seconds()),
		fmt.Sprintf("%.2f", r.Throughput),
		fmt.Sprintf("%.4f", r.SuccessRate),
		fmt.Sprintf("%.4f", r.LossRate),
		strconv.FormatInt(r.BytesSent, 10),
		r.DataSent,
		strconv.Itoa(r.ConnectFailures),
		strconv.Itoa(r.DisconnectFailures),
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}
