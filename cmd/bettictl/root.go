package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/betti/pkg/logger"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bettictl",
		Short: "Betti curves from persistence diagrams",
		Long: `bettictl discretizes persistence diagrams into Betti curves: for each
point of a uniform scale grid, the number of features of every homology
dimension alive there (birth <= scale < death).

Curves are written as csv, tsv or json tables ready for plotting.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// stdout carries tables, so logs go to stderr.
			if err := logger.InitWithWriter(cmd.ErrOrStderr(), logger.Format(opts.logFormat)); err != nil {
				return err
			}
			if err := logger.SetLevelString(opts.logLevel); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", string(logger.FormatText), "log format (text, json)")

	cmd.AddCommand(newCurveCmd(), newSubmitCmd(), newFetchCmd())
	return cmd
}
