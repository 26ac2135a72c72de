package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/automl/components"
	"github.com/kbukum/automl/engine"
	"github.com/kbukum/automl/logger"
)

// newProcessCmd is the entry point the process engine starts per task. It
// reads one task from stdin and writes one reply to stdout, so it logs to
// stderr and loads no config file.
func newProcessCmd() *cobra.Command {
	var workload string
	var level string
	cmd := &cobra.Command{
		Use:    "process",
		Short:  "Evaluate one task read from stdin",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lc := logger.Config{Level: level, Format: "json", Output: "stderr"}
			lc.ApplyDefaults()
			log := logger.New(&lc, "automl-worker")
			return engine.ServeProcess(cmd.Context(), components.NewRegistry(), workload, os.Stdin, os.Stdout, log)
		},
	}
	cmd.Flags().StringVar(&workload, "workload", "", "workload file written by the process engine")
	cmd.Flags().StringVar(&level, "log-level", "warn", "stderr log level")
	return cmd
}
