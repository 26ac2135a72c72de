package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/automl/bootstrap"
	"github.com/kbukum/automl/components"
	"github.com/kbukum/automl/engine"
	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/version"
)

func newWorkerCmd(root *rootFlags) *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Evaluate tasks from the distributed engine's redis queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			cfg.Redis.Enabled = true
			app, err := bootstrap.NewApp(cfg)
			if err != nil {
				return err
			}
			if app.Version == "" {
				app.Version = version.Short()
			}
			in := openInfra(app, false)
			if concurrency <= 0 {
				concurrency = cfg.Engine.Workers
			}
			app.Summary.TrackSetting("queue", cfg.Engine.Queue)

			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				if in.redis == nil {
					return errors.Configuration("the worker needs redis")
				}
				w := engine.NewWorker(in.redis, components.NewRegistry(), engine.WorkerConfig{
					Queue:       cfg.Engine.Queue,
					Concurrency: concurrency,
				}, app.Logger.WithComponent("worker"))
				return w.Serve(ctx)
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "tasks evaluated at once (defaults to engine.workers, then 1)")
	return cmd
}
