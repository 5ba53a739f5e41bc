/*
PURPOSE:
  High-level runner that orchestrates one benchmark run.
  Builds the client pool and drives connect -> publish -> disconnect,
  then aggregates the collected outcomes into a report.

REQUIREMENTS:
  User-specified:
  - Connect every client before any publish starts.
  - Publish the same ordered message set from every client.
  - Report progress in 10% steps.

  Implementation-discovered:
  - Clients that failed to connect still owe one outcome per message.
  - A fatal error mid-run must not leave sockets open.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (run)
  - Uses: internal/config, internal/transport, internal/metrics, internal/model

ERROR HANDLING:
  - Protocol failures are recorded as outcomes and the run continues.
  - Any returned error aborts the run; connected clients are closed best-effort.

IMPLEMENTATION RULES:
  - No state is kept on Runner between calls to Run.
  - Each phase is a barrier; data is read only after RunPhase returns.

USAGE:
  r := &engine.Runner{Config: cfg, Factory: transport.Paho, Logger: logger}
  report, err := r.Run(ctx)

SELF-HEALING INSTRUCTIONS:
  - If outcome counts stop adding up, Aggregate returns ErrOutcomeMismatch;
    check that every publish path appends exactly one outcome.

RELATED FILES:
  - internal/engine/phase.go
  - internal/engine/aggregate.go

MAINTENANCE:
  - Add new phases to Run in order and give each its own span.
*/

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/daryltucker/mqtt-bench/internal/config"
	"github.com/daryltucker/mqtt-bench/internal/metrics"
	"github.com/daryltucker/mqtt-bench/internal/model"
	"github.com/daryltucker/mqtt-bench/internal/transport"
)

// cleanupTimeout bounds the best-effort disconnect after a fatal error.
const cleanupTimeout = 5 * time.Second

// Runner executes benchmark runs. All fields except Config are optional.
type Runner struct {
	Config   *config.Config
	Factory  transport.Factory
	Logger   *slog.Logger
	Progress ProgressFunc
	Metrics  *metrics.Recorder
	Tracer   trace.Tracer
}

// Run executes one full benchmark and returns its report.
func (r *Runner) Run(ctx context.Context) (model.Report, error) {
	if r.Config == nil {
		return model.Report{}, fmt.Errorf("%w: no configuration", config.ErrInvalidConfig)
	}
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return model.Report{}, err
	}
	opts, err := transport.OptionsFromConfig(cfg)
	if err != nil {
		return model.Report{}, err
	}

	logger := r.logger()
	factory := r.Factory
	if factory == nil {
		factory = transport.Paho
	}

	startedAt := time.Now()
	pool, err := BuildPool(cfg.ClientCount, opts, factory)
	if err != nil {
		return model.Report{}, fmt.Errorf("failed to build client pool: %w", err)
	}
	logger.Info("Starting benchmark",
		"server", cfg.Address(),
		"version", opts.Version.String(),
		"clients", cfg.ClientCount,
		"messages", cfg.MessageCount,
		"size", cfg.MessageSize,
	)

	// 1. Connect
	connect, err := r.phase(ctx, model.PhaseConnect, pool, r.connectOp(logger))
	if err != nil {
		r.abort(ctx, pool, logger)
		return model.Report{}, err
	}
	connectFailures := 0
	for _, vc := range pool {
		if !vc.Connected() {
			connectFailures++
		}
	}
	logger.Info("Connect phase complete",
		"duration", connect.Duration(),
		"connected", len(pool)-connectFailures,
		"failed", connectFailures,
	)

	// 2. Publish
	msgs := GenerateMessages(cfg.MessageCount, cfg.MessageSize, byte(cfg.QoS), cfg.Retain, cfg.TopicPrefix)
	tracker := NewTracker(cfg.TotalMessages(), r.Progress)
	tracker.Start()
	publish, err := r.phase(ctx, model.PhasePublish, pool, r.publishOp(msgs, tracker, cfg.PublishRate))
	if err != nil {
		r.abort(ctx, pool, logger)
		return model.Report{}, err
	}
	tracker.Finish()
	logger.Info("Publish phase complete", "duration", publish.Duration(), "published", tracker.Count())

	// 3. Disconnect
	disconnect, err := r.phase(ctx, model.PhaseDisconnect, pool, r.disconnectOp())
	if err != nil {
		r.abort(ctx, pool, logger)
		return model.Report{}, err
	}
	disconnectFailures := 0
	outcomes := make([][]model.PublishOutcome, len(pool))
	for i, vc := range pool {
		outcomes[i] = vc.Outcomes
		if vc.Connect.Succeeded && !vc.Disconnect.Succeeded {
			disconnectFailures++
		}
	}
	logger.Info("Disconnect phase complete", "duration", disconnect.Duration(), "failed", disconnectFailures)

	// 4. Aggregate
	report, err := Aggregate(AggregateInput{
		ClientCount:        cfg.ClientCount,
		MessageCount:       cfg.MessageCount,
		MessageSize:        cfg.MessageSize,
		Outcomes:           outcomes,
		Connect:            connect,
		Publish:            publish,
		Disconnect:         disconnect,
		ConnectFailures:    connectFailures,
		DisconnectFailures: disconnectFailures,
	})
	if err != nil {
		r.Metrics.ObserveFailure()
		return model.Report{}, err
	}
	report.StartedAt = startedAt
	report.Settings = model.Settings{
		Server:       cfg.Address(),
		ClientCount:  cfg.ClientCount,
		MessageCount: cfg.MessageCount,
		MessageSize:  cfg.MessageSize,
		QoS:          cfg.QoS,
		Retain:       cfg.Retain,
		MQTTVersion:  opts.Version.String(),
		CleanSession: cfg.CleanSession,
		PublishRate:  cfg.PublishRate,
	}
	r.Metrics.ObserveReport(report)
	return report, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer == nil {
		return noop.NewTracerProvider().Tracer("mqtt-bench")
	}
	return r.Tracer
}

// phase runs one barrier-delimited phase inside a span.
func (r *Runner) phase(ctx context.Context, phase model.Phase, pool []*VirtualClient, op Operation) (model.PhaseTiming, error) {
	ctx, span := r.tracer().Start(ctx, "phase."+string(phase),
		trace.WithAttributes(attribute.Int("mqtt.clients", len(pool))))
	defer span.End()

	timing, err := RunPhase(ctx, phase, pool, op)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return timing, err
	}
	r.Metrics.ObservePhase(timing)
	return timing, nil
}

func (r *Runner) connectOp(logger *slog.Logger) Operation {
	return func(ctx context.Context, vc *VirtualClient) error {
		out, err := vc.Client.Connect(ctx)
		if err != nil {
			return fmt.Errorf("client %s connect: %w", vc.ID, err)
		}
		vc.Connect = out
		vc.connected = out.Succeeded
		r.Metrics.ObserveConnect(out)
		if !out.Succeeded {
			logger.Debug("Connect failed", "client", vc.ID, "code", out.Code, "detail", out.Detail)
		}
		return nil
	}
}

func (r *Runner) publishOp(msgs []model.Message, tracker *Tracker, perClientRate float64) Operation {
	return func(ctx context.Context, vc *VirtualClient) error {
		vc.Outcomes = make([]model.PublishOutcome, 0, len(msgs))

		if !vc.Connected() {
			for range msgs {
				out := model.Failure(model.FailureNotConnected, "client did not connect")
				vc.Outcomes = append(vc.Outcomes, out)
				r.Metrics.ObservePublish(out)
				tracker.Increment()
			}
			return nil
		}

		var limiter *rate.Limiter
		if perClientRate > 0 {
			limiter = rate.NewLimiter(rate.Limit(perClientRate), 1)
		}

		for _, msg := range msgs {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return fmt.Errorf("client %s publish pacing: %w", vc.ID, err)
				}
			}
			out, err := vc.Client.Publish(ctx, msg)
			if err != nil {
				return fmt.Errorf("client %s publish %s: %w", vc.ID, msg.Topic, err)
			}
			vc.Outcomes = append(vc.Outcomes, out)
			r.Metrics.ObservePublish(out)
			tracker.Increment()
		}
		return nil
	}
}

func (r *Runner) disconnectOp() Operation {
	return func(ctx context.Context, vc *VirtualClient) error {
		if !vc.Connected() {
			return nil
		}
		out, err := vc.Client.Disconnect(ctx)
		if err != nil {
			return fmt.Errorf("client %s disconnect: %w", vc.ID, err)
		}
		vc.Disconnect = out
		vc.connected = false
		r.Metrics.ObserveDisconnect(out, true)
		return nil
	}
}

// abort closes whatever is still connected after a fatal error.
func (r *Runner) abort(ctx context.Context, pool []*VirtualClient, logger *slog.Logger) {
	r.Metrics.ObserveFailure()

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	_, _ = RunPhase(cleanupCtx, model.PhaseDisconnect, pool, func(ctx context.Context, vc *VirtualClient) error {
		if !vc.Connected() {
			return nil
		}
		out, err := vc.Client.Disconnect(ctx)
		vc.connected = false
		r.Metrics.ObserveDisconnect(out, true)
		if err != nil {
			logger.Debug("Cleanup disconnect failed", "client", vc.ID, "error", err)
			return nil
		}
		vc.Disconnect = out
		return nil
	})
	closed := 0
	for _, vc := range pool {
		if vc.Disconnect.Succeeded {
			closed++
		}
	}
	logger.Warn("Benchmark aborted, connections closed", "clients", len(pool), "closed", closed)
}
