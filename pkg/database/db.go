package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/pkg/metrics"
)

var DB *gorm.DB

// Connect opens the configured database, configures the pool and stores the
// handle in DB. It returns an error instead of exiting so the caller can
// shut down gracefully.
func Connect() (*gorm.DB, error) {
	db, err := Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: get sql.DB: %w", err)
	}
	if config.DatabaseDriver() == "sqlite" {
		// sqlite serialises writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	DB = db
	return db, nil
}

// Open creates a gorm handle for driver/dsn with unique-violation
// translation and query metrics enabled.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := buildDialector(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: build dialector: %w", err)
	}

	level := gormlogger.Warn
	if config.AppEnv() == "production" || config.AppEnv() == "prod" {
		level = gormlogger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		// Deletes are explicit in the services; category and user rows may
		// disappear while products and orders keep referencing them.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	if err := instrument(db); err != nil {
		return nil, fmt.Errorf("database: instrument: %w", err)
	}
	return db, nil
}

func buildDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlserver":
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: sqlite, postgres, mysql, sqlserver)", driver)
	}
}

const startedAtKey = "storefront:started_at"

// instrument records every statement's latency in the db query histogram.
func instrument(db *gorm.DB) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(startedAtKey, time.Now()) }
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			if v, ok := tx.InstanceGet(startedAtKey); ok {
				if start, ok := v.(time.Time); ok {
					metrics.ObserveDBQuery(operation, start)
				}
			}
		}
	}

	cb := db.Callback()
	steps := []struct {
		op  string
		reg func(name string, fn func(*gorm.DB)) error
		aft func(name string, fn func(*gorm.DB)) error
	}{
		{"insert", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.reg("metrics:before_"+s.op, before); err != nil {
			return err
		}
		if err := s.aft("metrics:after_"+s.op, after(s.op)); err != nil {
			return err
		}
	}
	return nil
}
