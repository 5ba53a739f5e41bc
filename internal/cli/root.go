/*
PURPOSE:
  Defines the root Cobra command for the mqtt-bench CLI.
  Handles global flags and shared config/logger setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.
  - Read settings from the environment when running in a container.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Signal handling lives in main; the context flows down from there.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/mqtt-bench/main.go
  - Calls: Child commands (run, ping, config)
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Returns error to main.go for exit code handling.
  - Cobra's own error printing is silenced; main prints once.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init() and applyGlobalFlags().

RELATED FILES:
  - cmd/mqtt-bench/main.go
  - internal/config/env.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/mqtt-bench/internal/config"
	"github.com/daryltucker/mqtt-bench/internal/output"
	"github.com/daryltucker/mqtt-bench/internal/transport"
)

// Version is reported in traces and `--version`. Set with -ldflags.
var Version = "dev"

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	fromEnv   bool
	logLevel  string
	logFormat string

	// lookupEnv and factory are swapped in tests.
	lookupEnv config.LookupFunc  = os.LookupEnv
	factory   transport.Factory = transport.Paho

	rootCmd = &cobra.Command{
		Use:           "mqtt-bench",
		Short:         "Load generator for MQTT brokers",
		Long:          `Opens many concurrent MQTT clients, publishes a fixed message set from each and reports throughput, latency of the connect/disconnect phases and loss rate.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mqtt-bench.yaml)")
	rootCmd.PersistentFlags().BoolVar(&fromEnv, "env", false, "read settings from environment variables instead of a file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json")
}

// containerized reports whether settings come from the environment.
func containerized() bool {
	return fromEnv || config.IsContainerized(lookupEnv)
}

// loadConfig reads the environment or the config file and applies global flags.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if containerized() {
		cfg, err = config.FromEnv(lookupEnv)
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	return output.NewLogger(w, cfg.Log.Level, cfg.Log.Format)
}
