package client

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"order-intake-bot/internal/model"
)

func InitSqliteClient(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// single writer; sqlite serializes writes anyway and this avoids
	// SQLITE_BUSY under concurrent reservations
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.AutoMigrate(
		&model.Product{},
		&model.Order{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}
