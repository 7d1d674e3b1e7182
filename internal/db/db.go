package db

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"orderbackup/internal/config"
)

// DB bundles the gorm handle with its pool so callers can close both.
type DB struct {
	Gorm   *gorm.DB
	SQL    *sql.DB
	Driver string
}

type Option func(*gorm.Config, config.DBConfig)

// WithLogger reports slow queries and driver errors through zap. Missing
// rows are expected by the repositories and are not logged.
func WithLogger(log *zap.Logger) Option {
	return func(gcfg *gorm.Config, cfg config.DBConfig) {
		if log == nil {
			return
		}
		gcfg.Logger = gormlogger.New(zapWriter{log.Sugar()}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
}

type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.log.Warnf(format, args...)
}

func Open(cfg config.DBConfig, opts ...Option) (*DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Discard}
	for _, opt := range opts {
		opt(gcfg, cfg)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// In-memory databases exist per connection.
		pool.SetMaxOpenConns(1)
	} else {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return &DB{Gorm: gdb, SQL: pool, Driver: cfg.Driver}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

// SetTimezone pins the postgres session zone so revision timestamps read
// back consistently. sqlite stores what it is given.
func SetTimezone(db *DB, tz string) error {
	if tz == "" || db == nil || db.Driver == "sqlite" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}
