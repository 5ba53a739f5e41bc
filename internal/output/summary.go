package output

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

const rule = "======================================="

// WriteSummary prints the human-readable result table.
func WriteSummary(w io.Writer, r model.Report) error {
	rows := [][2]string{
		{"Messages sent", fmt.Sprintf("%d", r.MessagesSent)},
		{"Elapsed time", fmt.Sprintf("%.3f", r.PublishDuration.Seconds())},
		{"Throughput", fmt.Sprintf("%.0f messages/second", r.Throughput)},
		{"Connect time", fmt.Sprintf("%.3f seconds", r.ConnectDuration.Seconds())},
		{"Disconnect time", fmt.Sprintf("%.3f seconds", r.DisconnectDuration.Seconds())},
		{"Success rate", fmt.Sprintf("%.0f%%", r.SuccessRate*100)},
		{"Loss rate", fmt.Sprintf("%.0f%%", r.LossRate*100)},
		{"Data sent", r.DataSent},
	}
	if r.ConnectFailures > 0 {
		rows = append(rows, [2]string{"Connect failures", fmt.Sprintf("%d", r.ConnectFailures)})
	}
	if r.DisconnectFailures > 0 {
		rows = append(rows, [2]string{"Disconnect failures", fmt.Sprintf("%d", r.DisconnectFailures)})
	}

	if _, err := fmt.Fprintf(w, "Benchmark completed\n%s\n", rule); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}

// LogReport emits the report as one structured record.
func LogReport(logger *slog.Logger, r model.Report) {
	attrs := []any{
		"clients", r.Clients,
		"messages_sent", r.MessagesSent,
		"failed", r.Failed,
		"elapsed", r.PublishDuration,
		"throughput", fmt.Sprintf("%.0f", r.Throughput),
		"connect_time", r.ConnectDuration,
		"disconnect_time", r.DisconnectDuration,
		"success_rate", r.SuccessRate,
		"loss_rate", r.LossRate,
		"data_sent", r.DataSent,
	}
	if r.ConnectFailures > 0 {
		attrs = append(attrs, "connect_failures", r.ConnectFailures)
	}
	codes := make([]string, 0, len(r.FailuresByCode))
	for code := range r.FailuresByCode {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	for _, code := range codes {
		attrs = append(attrs, "failures_"+code, r.FailuresByCode[model.FailureCode(code)])
	}
	logger.Info("Benchmark completed", attrs...)
}
