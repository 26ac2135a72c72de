// Package bootstrap runs the lifecycle of the automl binaries.
//
// An App owns the typed configuration, the logger and the infrastructure
// opened for a run (redis, ledger stores, telemetry providers). Resources
// are closed in reverse order when the task returns or the process is
// interrupted.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(func(ctx context.Context) error { return openStores(ctx, app) })
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return search.RunToCompletion(ctx)
//	})
package bootstrap
