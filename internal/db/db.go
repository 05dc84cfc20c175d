// Package db provides database connection and migration functionality for the
// mirror store.
package db

import (
	"fmt"
	stdlog "log"
	"os"

	"oracle-consensus/internal/config"
	"oracle-consensus/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a database connection using the provided configuration.
// Returns (nil, nil) when no database is configured; the relay then refuses
// to start but read-only tooling can still run.
func Open(cfg config.Config) (*gorm.DB, error) {
	// Silent GORM logger; only errors surface, and those through our own log
	newLogger := logger.New(
		stdlog.New(os.Stdout, "", stdlog.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	if cfg.DBDialect == "" || cfg.DBDsn == "" {
		return nil, nil
	}

	switch cfg.DBDialect {
	case config.DatabaseSchemePostgres:
		return gorm.Open(postgres.Open(cfg.DBDsn), &gorm.Config{Logger: newLogger})
	case config.DatabaseSchemeSQLite:
		return gorm.Open(sqlite.Open(cfg.DBDsn), &gorm.Config{Logger: newLogger})
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT: %s", cfg.DBDialect)
	}
}

// AutoMigrate runs database migrations for all mirror models.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&models.Question{},
		&models.Answer{},
		&models.VoteRecord{},
		&models.Round{},
		&models.RelayCursor{},
		&models.AIRequest{},
	)
}
