package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
)

// DB wraps a GORM database with structured logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Open connects with retries and configures the pool.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, errors.Configuration("database is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Get("database")
	}
	return open(ctx, sqlite.Open(cfg.DSN), cfg, log)
}

func open(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger: newQueryLogger(log, slowThreshold, cfg.LogLevel),
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, errors.Cancelled("database connect")
		}

		var db *gorm.DB
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			if err = configurePool(ctx, db, cfg); err == nil {
				log.Info("Database connection established", map[string]interface{}{
					"driver":  cfg.Driver,
					"attempt": attempt,
				})
				return &DB{GormDB: db, log: log, cfg: cfg}, nil
			}
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(attempt) * 100 * time.Millisecond
			log.Warn("Database connection attempt failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
			select {
			case <-ctx.Done():
				return nil, errors.Cancelled("database connect")
			case <-time.After(backoff):
			}
		}
	}
	return nil, errors.Resource(fmt.Sprintf("failed to connect to database after %d attempts", cfg.MaxRetries), err)
}

func configurePool(ctx context.Context, db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, parseErr := time.ParseDuration(cfg.ConnMaxLifetime); parseErr == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	return nil
}

// Close closes the connection pool. Safe to call more than once.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// AutoMigrate creates or updates the tables of models.
func (d *DB) AutoMigrate(models ...interface{}) error {
	for _, model := range models {
		if err := d.GormDB.AutoMigrate(model); err != nil {
			return FromDatabase(err, fmt.Sprintf("%T", model))
		}
	}
	d.log.Debug("Auto-migration completed", map[string]interface{}{"models": len(models)})
	return nil
}

// WithTransaction runs fn in a transaction, rolling back on error or panic.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := d.GormDB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return FromDatabase(tx.Error, "transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			d.log.Error("Transaction rolled back due to panic", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return FromDatabase(err, "transaction")
	}
	return nil
}
