package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/automl/logger"
)

// Resource is infrastructure opened for a run. Close is called once during
// shutdown, in reverse order of tracking.
type Resource struct {
	Name    string
	Kind    string // e.g. "redis", "ledger", "tracer"
	Details string
	Close   func(ctx context.Context) error
}

// App runs a finite task with uniform lifecycle management.
// The type parameter C is the config type.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	Summary *Summary

	gracefulTimeout time.Duration
	summaryOut      io.Writer

	mu        sync.Mutex
	resources []Resource
	onStart   []Hook
	onStop    []Hook
	stopOnce  sync.Once
	stopErr   error
}

// NewApp creates an application from a typed config.
// It applies defaults, validates the config and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		summaryOut:      os.Stderr,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summaryOut != nil {
		app.summaryOut = o.summaryOut
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// Track registers an opened resource for shutdown and lists it in the
// startup summary.
func (a *App[C]) Track(r Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resources = append(a.resources, r)
	a.Summary.TrackInfrastructure(r.Name, r.Kind, "connected", r.Details, true)
}

// RunTask runs the start hooks, then task, then shuts down. The task
// context is cancelled on SIGINT or SIGTERM. The task's error wins over a
// shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		if stopErr := a.stop(); stopErr != nil {
			a.Logger.Error("Shutdown after failed startup", logger.ErrorFields("shutdown", stopErr))
		}
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, cancelling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil {
		if taskErr != nil {
			return taskErr
		}
		return stopErr
	}
	return taskErr
}

// Shutdown closes every tracked resource. Use it when managing your own
// lifecycle. Later calls return the first result.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Display(a.summaryOut)
	return nil
}

// stop runs the stop hooks and closes resources in reverse order within the
// graceful timeout.
func (a *App[C]) stop() error {
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()

		if err := runHooks(ctx, a.onStop); err != nil {
			a.Logger.Error("OnStop hook error", logger.ErrorFields("shutdown", err))
			a.stopErr = err
		}

		a.mu.Lock()
		resources := a.resources
		a.resources = nil
		a.mu.Unlock()
		for i := len(resources) - 1; i >= 0; i-- {
			r := resources[i]
			if r.Close == nil {
				continue
			}
			if err := r.Close(ctx); err != nil {
				a.Logger.Error("Closing resource failed", logger.MergeWithError(logger.Fields("resource", r.Name), err))
				if a.stopErr == nil {
					a.stopErr = fmt.Errorf("closing %s: %w", r.Name, err)
				}
			}
		}
		a.Logger.Debug("Application shutdown complete")
	})
	return a.stopErr
}
