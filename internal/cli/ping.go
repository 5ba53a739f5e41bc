package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daryltucker/mqtt-bench/internal/transport"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the broker accepts a connection",
	Long:  `Connects a single client with the configured settings, reports how long the handshake took and disconnects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		flags.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		opts, err := transport.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		opts.ClientID = "mqtt-bench-ping-" + uuid.NewString()

		c, err := factory.NewClient(opts)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		fmt.Fprintf(cmd.OutOrStdout(), "Connecting to %s (%s)...\n", opts.Address(), opts.Version)
		start := time.Now()
		out, err := c.Connect(ctx)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		if !out.Succeeded {
			return fmt.Errorf("connect to %s failed: %s: %s", opts.Address(), out.Code, out.Detail)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Connected in %.3f seconds\n", elapsed.Seconds())

		dis, err := c.Disconnect(ctx)
		if err != nil {
			return err
		}
		if !dis.Succeeded {
			fmt.Fprintf(cmd.ErrOrStderr(), "Disconnect failed: %s: %s\n", dis.Code, dis.Detail)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	addConnectionFlags(pingCmd, &flags)
}
