// Package database implements the entity repositories on PostgreSQL.
package database

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/school"
	"github.com/shulehq/shule/core/student"
	"github.com/shulehq/shule/core/user"
)

// Open connects to the database described by cfg and waits for it to become
// reachable before returning.
func Open(cfg core.DatabaseConfig) (*gorm.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode,
	)

	logLevel := gormlogger.Silent
	if core.Conf != nil && core.Conf.Debug {
		logLevel = gormlogger.Warn
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "unwrapping database handle")
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// wait for the database to be ready
	var pingErr error
	for attempt := 1; attempt <= 20; attempt++ {
		if pingErr = sqlDB.Ping(); pingErr == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	if pingErr != nil {
		return nil, errors.Wrap(pingErr, "pinging database")
	}
	return db, nil
}

// Migrate brings the schema up to date with the registered models.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&user.User{},
		&school.School{},
		&student.Student{},
	)
	return errors.Wrap(err, "migrating schema")
}
