// Package datastore opens the backing database and owns schema migration.
package datastore

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// Open connects to the configured database and migrates the schema.
// Supported types are "sqlite" (default) and "mysql".
func Open(settings conf.DatabaseSettings, log logger.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var db *gorm.DB
	var err error
	switch settings.Type {
	case "", "sqlite":
		path := settings.Path
		if path == "" {
			path = "chargewatch.db"
		}
		db, err = gorm.Open(sqlite.Open(path), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
		}
	case "mysql":
		db, err = gorm.Open(mysql.Open(settings.DSN), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open mysql database: %w", err)
		}
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			return nil, fmt.Errorf("failed to access mysql connection pool: %w", dbErr)
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("failed to open database: unsupported type %q", settings.Type)
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	log.Info("database ready",
		logger.String("type", displayType(settings.Type)),
	)
	return db, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&entities.Alert{},
		&entities.SensorReading{},
		&entities.Camera{},
		&entities.DetectionEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

func displayType(t string) string {
	if t == "" {
		return "sqlite"
	}
	return t
}
