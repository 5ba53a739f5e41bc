package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/mqtt-bench/internal/config"
)

func TestInitTracingDisabled(t *testing.T) {
	tracer, shutdown, err := InitTracing(context.Background(), config.TracingConfig{}, "test")
	require.NoError(t, err)
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "phase.connect")
	assert.False(t, span.SpanContext().IsValid(), "noop spans carry no context")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingEnabled(t *testing.T) {
	cfg := config.DefaultConfig().Tracing
	cfg.Enabled = true
	cfg.Endpoint = "127.0.0.1:4317"

	tracer, shutdown, err := InitTracing(context.Background(), cfg, "test")
	require.NoError(t, err)

	_, span := tracer.Start(context.Background(), "phase.publish")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	// No collector is running; only the shutdown path is exercised.
	_ = shutdown(ctx)
}
