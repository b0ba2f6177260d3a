package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// OpenSQLite opens a local store for replays and tests. ":memory:" gives a private
// in-memory database. SQLite serializes writers, so the pool is pinned to one connection;
// callers must not issue queries outside an open transaction while holding it.
func OpenSQLite(path string, quiet bool) (*gorm.DB, error) {
	cfg := &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true, Logger: gormLog()}
	if quiet {
		cfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
