package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/config"
	"github.com/mantonx/streamhub/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	dbMu sync.RWMutex
	db   *gorm.DB
)

// Initialize opens the configured database and installs it as the
// process-wide connection.
func Initialize(cfg config.DatabaseFullConfig) (*gorm.DB, error) {
	var (
		conn *gorm.DB
		err  error
	)

	switch cfg.Type {
	case "postgres":
		conn, err = connectPostgres(cfg)
	case "sqlite", "":
		conn, err = connectSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	SetDB(conn)
	logger.Info("database initialized", "type", cfg.Type)
	return conn, nil
}

// GormConfig returns the gorm settings shared by every connection
func GormConfig(logQueries bool) *gorm.Config {
	level := gormlogger.Warn
	if logQueries {
		level = gormlogger.Info
	}
	writer := logger.Named("gorm").StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
	return &gorm.Config{
		Logger: gormlogger.New(writer, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}
}

func connectPostgres(cfg config.DatabaseFullConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.LogQueries))
}

func connectSQLite(cfg config.DatabaseFullConfig) (*gorm.DB, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return gorm.Open(sqlite.Open(withSQLitePragmas(dsn)), GormConfig(cfg.LogQueries))
}

// withSQLitePragmas turns on foreign keys so cascades behave like postgres
func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// SetDB installs the process-wide connection
func SetDB(conn *gorm.DB) {
	dbMu.Lock()
	defer dbMu.Unlock()
	db = conn
}

// Ping checks that the database answers
func Ping(ctx context.Context) error {
	conn := GetDB()
	if conn == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the process-wide connection
func Close() error {
	conn := GetDB()
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
