package main

import (
	"context"
	"fmt"

	"github.com/kbukum/automl/bootstrap"
	"github.com/kbukum/automl/config"
	"github.com/kbukum/automl/ledger"
	"github.com/kbukum/automl/observability"
	"github.com/kbukum/automl/redis"
)

// infra holds what the start hooks opened.
type infra struct {
	redis   *redis.Client
	store   ledger.Store
	metrics *observability.SearchMetrics
}

type closer interface{ Close() error }

// openInfra registers start hooks that open redis, telemetry and the ledger
// store as the config asks, tracking each for shutdown.
func openInfra(app *bootstrap.App[*config.Config], withStore bool) *infra {
	in := &infra{}
	cfg := app.Cfg

	app.OnStart(func(ctx context.Context) error {
		if !cfg.Redis.Enabled {
			return nil
		}
		client, err := redis.New(cfg.Redis, app.Logger.WithComponent("redis"))
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return err
		}
		in.redis = client
		details := cfg.Redis.Addr
		if cfg.Redis.TLS.Enabled() {
			details += " (tls)"
		}
		app.Track(bootstrap.Resource{
			Name:    "redis",
			Kind:    "redis",
			Details: details,
			Close:   func(context.Context) error { return client.Close() },
		})
		return nil
	})

	app.OnStart(func(ctx context.Context) error {
		obs := cfg.Observability
		if !obs.Enabled {
			return nil
		}
		ec := observability.DefaultExportConfig(cfg.Name)
		ec.ServiceVersion = app.Version
		ec.Environment = cfg.Environment
		ec.Insecure = obs.Insecure
		ec.SampleRatio = obs.SampleRatio
		if obs.Endpoint != "" {
			ec.Endpoint = obs.Endpoint
		}
		providers, err := observability.Init(ctx, ec)
		if err != nil {
			return err
		}
		app.Track(bootstrap.Resource{Name: "telemetry", Kind: "otlp", Details: ec.Endpoint, Close: providers.Shutdown})
		in.metrics = observability.NewDefaultSearchMetrics()
		return nil
	})

	if withStore {
		app.OnStart(func(ctx context.Context) error {
			store, err := ledger.OpenStore(ctx, cfg.Ledger, in.redis, app.Logger.WithComponent("ledger"))
			if err != nil {
				return err
			}
			if store == nil {
				return nil
			}
			in.store = store
			r := bootstrap.Resource{Name: "ledger", Kind: "ledger", Details: storeDetails(cfg.Ledger)}
			if c, ok := store.(closer); ok {
				r.Close = func(context.Context) error { return c.Close() }
			}
			app.Track(r)
			return nil
		})
	}
	return in
}

func storeDetails(cfg config.LedgerConfig) string {
	sealed := ""
	if cfg.EncryptionKey != "" {
		sealed = " (sealed)"
	}
	switch cfg.Store {
	case config.StoreLocal:
		return fmt.Sprintf("local %s%s", cfg.Path, sealed)
	case config.StoreS3:
		return fmt.Sprintf("s3 %s/%s%s", cfg.Bucket, cfg.Prefix, sealed)
	case config.StoreSQL:
		return fmt.Sprintf("sql %s", cfg.DSN)
	}
	return cfg.Store
}
