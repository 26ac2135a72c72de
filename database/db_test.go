package database

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/logger"
)

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Enabled: true,
		DSN:     filepath.Join(t.TempDir(), "test.db"),
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// --- Config tests ---

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Errorf("expected missing dsn, got %v", err)
	}
	cfg.DSN = "x.db"
	cfg.Driver = "postgres"
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected unsupported driver, got %v", err)
	}
	cfg.Driver = DriverSQLite
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected unknown log level, got %v", err)
	}
	if err := (&Config{}).Validate(); err != nil {
		t.Errorf("disabled config should validate, got %v", err)
	}
}

func TestQueryLogger_LogMode(t *testing.T) {
	base := newQueryLogger(logger.NewNop(), 0, "unknown").(*queryLogger)
	if base.level != gormlogger.Warn {
		t.Errorf("expected warn for an unknown level, got %v", base.level)
	}
	info := base.LogMode(gormlogger.Info).(*queryLogger)
	if info.level != gormlogger.Info || base.level != gormlogger.Warn {
		t.Errorf("LogMode should copy the logger, got %v and %v", info.level, base.level)
	}
}

func TestOpen_Disabled(t *testing.T) {
	if _, err := Open(context.Background(), Config{}, logger.NewNop()); !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected a configuration error, got %v", err)
	}
}

// --- DB tests ---

func TestDB_MigrateAndTransaction(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	if err := db.AutoMigrate(&row{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	err := db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&row{Name: "kept"}).Error
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}
	boom := stderrors.New("boom")
	err = db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&row{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	var rows []row
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "kept" {
		t.Errorf("expected only the committed row, got %v", rows)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Errorf("PingContext: %v", err)
	}
}

func TestFromDatabase(t *testing.T) {
	if FromDatabase(nil, "x") != nil {
		t.Error("nil should stay nil")
	}
	if !errors.HasCode(FromDatabase(gorm.ErrRecordNotFound, "result"), errors.ErrCodeNotFound) {
		t.Error("record not found should map to not found")
	}
	if !errors.HasCode(FromDatabase(stderrors.New("database is locked"), "result"), errors.ErrCodeResource) {
		t.Error("a locked database should map to a resource error")
	}
	if !errors.HasCode(FromDatabase(stderrors.New("syntax error"), "result"), errors.ErrCodeStorage) {
		t.Error("other errors should map to storage errors")
	}
}
