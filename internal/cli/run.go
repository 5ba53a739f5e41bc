/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes benchmark runs against one broker, once or repeatedly.

REQUIREMENTS:
  User-specified:
  - Run the benchmark.
  - Ask before each interactive run; repeat unattended in a container.
  - Specific flags for overrides.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config, then validate before any network I/O.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Runner.Run()
  - Uses: internal/config, internal/output, internal/metrics, internal/telemetry

ERROR HANDLING:
  - Returns error if config load fails or a run hits a fatal error.
  - Per-message failures are part of the report, not errors.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Validate -> Loop(Runner.Run).

USAGE:
  mqtt-bench run --server broker.local --clients 200 --messages 500

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go
  - internal/cli/loop.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/daryltucker/mqtt-bench/internal/config"
	"github.com/daryltucker/mqtt-bench/internal/engine"
	"github.com/daryltucker/mqtt-bench/internal/metrics"
	"github.com/daryltucker/mqtt-bench/internal/output"
	"github.com/daryltucker/mqtt-bench/internal/telemetry"
)

// overrides holds flag values shared by run and ping.
type overrides struct {
	server       string
	port         int
	mqttVersion  string
	username     string
	password     string
	clients      int
	messages     int
	size         int
	qos          int
	retain       bool
	topicPrefix  string
	publishRate  float64
	outputDir    string
	metricsAddr  string
	cleanSession bool
}

var (
	flags     overrides
	repeat    int
	assumeYes bool
)

// apply copies every flag the user actually set onto cfg.
func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("server") {
		cfg.ServerURI = o.server
	}
	if changed("port") {
		cfg.Port = o.port
	}
	if changed("mqtt-version") {
		cfg.MQTTVersion = o.mqttVersion
	}
	if changed("username") {
		cfg.Username = o.username
	}
	if changed("password") {
		cfg.Password = o.password
	}
	if changed("clean-session") {
		cfg.CleanSession = o.cleanSession
	}
	if changed("clients") {
		cfg.ClientCount = o.clients
	}
	if changed("messages") {
		cfg.MessageCount = o.messages
	}
	if changed("size") {
		cfg.MessageSize = o.size
	}
	if changed("qos") {
		cfg.QoS = o.qos
	}
	if changed("retain") {
		cfg.Retain = o.retain
	}
	if changed("topic-prefix") {
		cfg.TopicPrefix = o.topicPrefix
	}
	if changed("rate") {
		cfg.PublishRate = o.publishRate
	}
	if changed("output-dir") {
		cfg.OutputDir = o.outputDir
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = o.metricsAddr
	}
}

func addConnectionFlags(cmd *cobra.Command, o *overrides) {
	cmd.Flags().StringVar(&o.server, "server", "", "broker host name or IP")
	cmd.Flags().IntVar(&o.port, "port", 0, "broker port")
	cmd.Flags().StringVar(&o.mqttVersion, "mqtt-version", "", "protocol version: v310, v311, v500")
	cmd.Flags().StringVar(&o.username, "username", "", "broker user name")
	cmd.Flags().StringVar(&o.password, "password", "", "broker password")
	cmd.Flags().BoolVar(&o.cleanSession, "clean-session", true, "start every client with a clean session")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark",
	Long: `Runs the benchmark against one MQTT broker.
Every run follows the same three phases, each finishing completely before the next starts:
1. Connect: all clients connect concurrently.
2. Publish: every client publishes the same ordered message set.
3. Disconnect: all connected clients disconnect.

Interactive runs ask before starting and again after each report. With
MQTTBenchContainerized=true (or --env) settings come from environment
variables and runs repeat without asking (--repeat 0 means forever).`,
	Example: `  # Run with defaults (uses mqtt-bench.yaml if present)
  mqtt-bench run

  # 200 clients, 500 messages of 256 bytes each, QoS 1
  mqtt-bench run --clients 200 --messages 500 --size 256 --qos 1

  # Unattended: three runs, results to ./results, metrics on :9090
  mqtt-bench run --yes --repeat 3 -o ./results --metrics-addr :9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// 2. Overrides
		flags.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger(cmd.OutOrStdout(), cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		interactive := !containerized() && !assumeYes
		runs := repeat
		if assumeYes && !containerized() && !cmd.Flags().Changed("repeat") {
			runs = 1
		}

		// 3. Supporting services
		tracer, shutdown, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				logger.Warn("Tracer shutdown failed", "error", err)
			}
		}()

		reg := prometheus.NewRegistry()
		rec, err := metrics.NewRecorder(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		if cfg.Metrics.Addr != "" {
			srv, err := metrics.Listen(cfg.Metrics.Addr, reg, logger)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ctx); err != nil {
					logger.Error("Metrics server stopped", "error", err)
				}
			}()
		}

		var results *output.Results
		if cfg.OutputDir != "" {
			results, err = output.OpenResults(cfg.OutputDir)
			if err != nil {
				return err
			}
			defer results.Close()
		}

		progress := output.LogProgress(logger)
		if interactive {
			progress = output.ConsoleProgress(cmd.OutOrStdout())
		}

		// 4. Execution
		l := &loop{
			cfg: cfg,
			runner: &engine.Runner{
				Config:   cfg,
				Factory:  factory,
				Logger:   logger,
				Progress: progress,
				Metrics:  rec,
				Tracer:   tracer,
			},
			logger:      logger,
			out:         cmd.OutOrStdout(),
			prompter:    NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
			interactive: interactive,
			runs:        runs,
			results:     results,
		}
		return l.run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addConnectionFlags(runCmd, &flags)
	runCmd.Flags().IntVarP(&flags.clients, "clients", "c", 0, "number of concurrent clients")
	runCmd.Flags().IntVarP(&flags.messages, "messages", "m", 0, "messages published by each client")
	runCmd.Flags().IntVarP(&flags.size, "size", "s", 0, "payload size in bytes")
	runCmd.Flags().IntVar(&flags.qos, "qos", 0, "publish QoS: 0, 1 or 2")
	runCmd.Flags().BoolVar(&flags.retain, "retain", false, "set the retain flag on every message")
	runCmd.Flags().StringVar(&flags.topicPrefix, "topic-prefix", "", "topic prefix; topics are <prefix>/1..N")
	runCmd.Flags().Float64Var(&flags.publishRate, "rate", 0, "max messages per second per client (0 = unlimited)")
	runCmd.Flags().StringVarP(&flags.outputDir, "output-dir", "o", "", "output directory for results (CSV/JSON)")
	runCmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().IntVar(&repeat, "repeat", 0, "number of unattended runs (0 = forever)")
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not prompt; run --repeat times (default once)")
}
