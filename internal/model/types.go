/*
PURPOSE:
  Defines the core data structures used throughout mqtt-bench.
  These models represent messages, per-operation outcomes, phase timings
  and the aggregated benchmark report.

REQUIREMENTS:
  User-specified:
  - Record connect / publish / disconnect durations.
  - Record success rate, loss rate, throughput and data volume.

  Implementation-discovered:
  - Per-operation failures are values, never errors.
  - Need JSON tags for the JSON Lines writer.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/transport, internal/output, internal/metrics
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Time and time.Duration for high precision.
  - Message is immutable once generated. Never mutate Payload.

USAGE:
  out := model.Success()
  rep := model.Report{...}

SELF-HEALING INSTRUCTIONS:
  - If new metrics are needed, add field and update CSV/JSON writers.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"time"
)

// Phase names one stage of a benchmark run.
type Phase string

const (
	PhaseConnect    Phase = "connect"
	PhasePublish    Phase = "publish"
	PhaseDisconnect Phase = "disconnect"
)

// FailureCode classifies a failed operation.
type FailureCode string

const (
	FailureNone         FailureCode = ""
	FailureNotConnected FailureCode = "not_connected"
	FailureTimeout      FailureCode = "timeout"
	FailureRejected     FailureCode = "rejected"
	FailureTransport    FailureCode = "transport"
)

// Message is a single publish request. The slice of messages generated for a
// run is shared read-only by every client.
type Message struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Outcome is the result of a single connect, publish or disconnect call.
type Outcome struct {
	Succeeded  bool        `json:"succeeded"`
	Code       FailureCode `json:"code,omitempty"`
	ReasonCode byte        `json:"reason_code,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// PublishOutcome is the result of one publish call.
type PublishOutcome = Outcome

// Success returns a succeeded outcome.
func Success() Outcome {
	return Outcome{Succeeded: true}
}

// Failure returns a failed outcome with the given code.
func Failure(code FailureCode, detail string) Outcome {
	return Outcome{Code: code, Detail: detail}
}

// Rejected returns a failed outcome carrying the broker's reason code.
func Rejected(reason byte, detail string) Outcome {
	return Outcome{Code: FailureRejected, ReasonCode: reason, Detail: detail}
}

// PhaseTiming is the wall-clock interval of one phase.
type PhaseTiming struct {
	Phase Phase     `json:"phase"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start using the monotonic clock reading when present.
func (t PhaseTiming) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Settings is the subset of the run configuration recorded with a report.
type Settings struct {
	Server       string  `json:"server"`
	ClientCount  int     `json:"client_count"`
	MessageCount int     `json:"message_count"`
	MessageSize  int     `json:"message_size"`
	QoS          int     `json:"qos"`
	Retain       bool    `json:"retain"`
	MQTTVersion  string  `json:"mqtt_version"`
	CleanSession bool    `json:"clean_session"`
	PublishRate  float64 `json:"publish_rate,omitempty"`
}

// Report is the aggregated result of one benchmark run.
type Report struct {
	StartedAt time.Time `json:"started_at"`
	Settings  Settings  `json:"settings"`

	Clients      int `json:"clients"`
	MessagesSent int `json:"messages_sent"`
	Failed       int `json:"failed"`

	PublishDuration    time.Duration `json:"publish_duration"`
	ConnectDuration    time.Duration `json:"connect_duration"`
	DisconnectDuration time.Duration `json:"disconnect_duration"`
	Throughput         float64       `json:"throughput_per_second"`

	SuccessRate float64 `json:"success_rate"`
	LossRate    float64 `json:"loss_rate"`

	BytesSent int64  `json:"bytes_sent"`
	DataSent  string `json:"data_sent"` // BytesSent scaled to the largest unit below 1024

	ConnectFailures    int                 `json:"connect_failures"`
	DisconnectFailures int                 `json:"disconnect_failures"`
	FailuresByCode     map[FailureCode]int `json:"failures_by_code,omitempty"`
}
