package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pkg.world.dev/world-engine/blobstore/config"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "universe",
		Short:         "Drive a partitioned entity store with a toy star system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newSimulateCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "universe", Version)
			return err
		},
	}
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Seed every partition, run the ticks and optionally round trip the result through redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: !isTerminal()}).
				Level(cfg.Level()).
				With().Timestamp().Logger()

			u, err := newUniverse(cfg, &logger)
			if err != nil {
				return err
			}
			rep, err := u.run(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rep)
			return err
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
