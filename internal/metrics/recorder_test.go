package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/mqtt-bench/internal/metrics"
	"github.com/daryltucker/mqtt-bench/internal/model"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestRecorderObserve(t *testing.T) {
	r, err := metrics.NewRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	r.ObservePublish(model.Success())
	r.ObservePublish(model.Success())
	r.ObservePublish(model.Failure(model.FailureTimeout, "slow"))

	assert.Equal(t, 2.0, counterValue(t, r.Publishes.WithLabelValues("success")))
	assert.Equal(t, 1.0, counterValue(t, r.Publishes.WithLabelValues("timeout")))

	r.ObserveConnect(model.Success())
	r.ObserveConnect(model.Failure(model.FailureTransport, "refused"))
	assert.Equal(t, 1.0, gaugeValue(t, r.ActiveClients))

	r.ObserveDisconnect(model.Success(), true)
	assert.Equal(t, 0.0, gaugeValue(t, r.ActiveClients))

	start := time.Now()
	r.ObservePhase(model.PhaseTiming{Phase: model.PhasePublish, Start: start, End: start.Add(1500 * time.Millisecond)})
	assert.Equal(t, 1.5, gaugeValue(t, r.PhaseDuration.WithLabelValues("publish")))

	r.ObserveReport(model.Report{Throughput: 120, LossRate: 0.25, BytesSent: 60})
	assert.Equal(t, 120.0, gaugeValue(t, r.Throughput))
	assert.Equal(t, 0.25, gaugeValue(t, r.LossRate))
	assert.Equal(t, 60.0, counterValue(t, r.BytesSent))
	assert.Equal(t, 1.0, counterValue(t, r.RunsCompleted))

	r.ObserveFailure()
	assert.Equal(t, 1.0, counterValue(t, r.RunsFailed))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *metrics.Recorder
	assert.NotPanics(t, func() {
		r.ObservePublish(model.Success())
		r.ObserveConnect(model.Success())
		r.ObserveDisconnect(model.Success(), true)
		r.ObservePhase(model.PhaseTiming{})
		r.ObserveReport(model.Report{})
		r.ObserveFailure()
	})
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	_, err = metrics.NewRecorder(reg)
	require.Error(t, err)
}

func TestServerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := metrics.NewRecorder(reg)
	require.NoError(t, err)
	r.ObservePublish(model.Success())

	srv, err := metrics.Listen("127.0.0.1:0", reg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.True(t, strings.Contains(body, `mqttbench_publishes_total{result="success"} 1`), body)

	cancel()
	require.NoError(t, <-done)
}
