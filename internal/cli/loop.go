package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/daryltucker/mqtt-bench/internal/config"
	"github.com/daryltucker/mqtt-bench/internal/model"
	"github.com/daryltucker/mqtt-bench/internal/output"
)

// benchmarkRunner is the part of engine.Runner the loop needs.
type benchmarkRunner interface {
	Run(ctx context.Context) (model.Report, error)
}

// loop repeats benchmark runs until the user declines, the run budget is
// spent, the context is cancelled or a run fails.
type loop struct {
	cfg         *config.Config
	runner      benchmarkRunner
	logger      *slog.Logger
	out         io.Writer
	prompter    *Prompter
	interactive bool
	runs        int // unattended only; 0 means forever
	results     *output.Results
}

func (l *loop) run(ctx context.Context) error {
	for n := 1; ; n++ {
		if ctx.Err() != nil {
			return nil
		}
		if l.interactive {
			ok, err := l.prompter.Confirm(ctx, StartPrompt)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		} else if l.runs > 0 && n > l.runs {
			return nil
		}

		if err := l.once(ctx, n); err != nil {
			return err
		}
	}
}

func (l *loop) once(ctx context.Context, n int) error {
	masked := l.cfg.Masked()
	password := masked.Password
	if password == "" {
		password = "(empty)"
	}
	l.logger.Info("Benchmark started", "run", n)
	l.logger.Info("Benchmark settings",
		"server", masked.Address(),
		"clients", masked.ClientCount,
		"messages_per_client", masked.MessageCount,
		"message_size", masked.MessageSize,
		"qos", masked.QoS,
		"retain", masked.Retain,
		"mqtt_version", masked.MQTTVersion,
		"clean_session", masked.CleanSession,
		"username", masked.Username,
		"password", password,
		"keep_alive", masked.KeepAlivePeriod,
		"connection_timeout", masked.ConnectionTimeout,
	)

	report, err := l.runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("benchmark run %d failed: %w", n, err)
	}

	if l.interactive {
		if err := output.WriteSummary(l.out, report); err != nil {
			return err
		}
	} else {
		output.LogReport(l.logger, report)
	}
	if l.results != nil {
		if err := l.results.Write(report); err != nil {
			l.logger.Error("Failed to persist results", "error", err)
		}
	}
	return nil
}
