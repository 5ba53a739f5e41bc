package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// ErrOutcomeMismatch means the collected outcomes do not add up to
// clients x messages. Some worker lost or duplicated results.
var ErrOutcomeMismatch = errors.New("outcome count mismatch")

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// AggregateInput is everything Aggregate needs. It holds no references to
// live clients, only the data gathered after each phase barrier.
type AggregateInput struct {
	ClientCount  int
	MessageCount int
	MessageSize  int

	// Outcomes holds one slice per client, in pool order.
	Outcomes [][]model.PublishOutcome

	Connect    model.PhaseTiming
	Publish    model.PhaseTiming
	Disconnect model.PhaseTiming

	ConnectFailures    int
	DisconnectFailures int
}

// Aggregate computes the run report. It is a pure function of in.
func Aggregate(in AggregateInput) (model.Report, error) {
	messagesSent := in.ClientCount * in.MessageCount

	observed := 0
	failed := 0
	var byCode map[model.FailureCode]int
	for _, outcomes := range in.Outcomes {
		observed += len(outcomes)
		for _, o := range outcomes {
			if o.Succeeded {
				continue
			}
			failed++
			if byCode == nil {
				byCode = make(map[model.FailureCode]int)
			}
			byCode[o.Code]++
		}
	}
	if observed != messagesSent {
		return model.Report{}, fmt.Errorf("%w: expected %d outcomes, collected %d", ErrOutcomeMismatch, messagesSent, observed)
	}

	lossRate := 0.0
	if messagesSent > 0 {
		lossRate = float64(failed) / float64(messagesSent)
	}

	publish := in.Publish.Duration()
	bytesSent := int64(messagesSent) * int64(in.MessageSize)

	return model.Report{
		Clients:            in.ClientCount,
		MessagesSent:       messagesSent,
		Failed:             failed,
		PublishDuration:    publish,
		ConnectDuration:    in.Connect.Duration(),
		DisconnectDuration: in.Disconnect.Duration(),
		Throughput:         Throughput(messagesSent, publish),
		SuccessRate:        1 - lossRate,
		LossRate:           lossRate,
		BytesSent:          bytesSent,
		DataSent:           FormatBytes(bytesSent),
		ConnectFailures:    in.ConnectFailures,
		DisconnectFailures: in.DisconnectFailures,
		FailuresByCode:     byCode,
	}, nil
}

// Throughput returns messages per second, or 0 for a zero-length interval.
func Throughput(messages int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(messages) / d.Seconds()
}

// FormatBytes scales n by 1024 until it is below 1024 or reaches TB, and
// formats it with three decimals, e.g. "1.500 MB".
func FormatBytes(n int64) string {
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.3f %s", size, byteUnits[unit])
}
