// Package db opens the configured database and prepares its schema
package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bitwise74/account-api/internal/store/sqlstore"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PasswordPlaceholder is replaced in database.uri by the credential secret
const PasswordPlaceholder = "<PASSWORD>"

// inDocker reports whether the process runs in a container, where a missing
// sqlite file means the volume was not mounted
func inDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return os.Getenv("container") != ""
}

// URI injects password into uri when it carries the placeholder
func URI(uri, password string) string {
	return strings.ReplaceAll(uri, PasswordPlaceholder, password)
}

// Open connects to a relational database. driver is "postgres" or "sqlite".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dial gorm.Dialector

	switch driver {
	case "postgres":
		dial = postgres.Open(dsn)
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if inDocker() && dsn != ":memory:" {
			if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to /app/%s", dsn)
			}
		}
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported relational driver %q", driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// One writer avoids "database is locked" and keeps :memory: on a single connection
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlstore.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
