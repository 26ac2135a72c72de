package storage

import (
	"context"
	"sync"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
)

// Factory creates a Storage from its configuration.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a backend available to New. Backend packages call it
// from init.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the backend cfg selects. The backend package must be imported,
// e.g. _ "github.com/kbukum/automl/storage/local".
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("storage")
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Configurationf("storage provider %q is not registered", cfg.Provider)
	}

	log.Info("Initializing storage", logger.Fields("provider", cfg.Provider))
	return f(ctx, cfg, log.WithComponent("storage"))
}
