package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"beanhealth/internal/config"
	"beanhealth/internal/domain"
	"beanhealth/internal/logging"
)

var (
	db *gorm.DB

	// ErrNotInitialized is returned by the package-level helpers before Init.
	ErrNotInitialized = errors.New("database not initialized")
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 10 * time.Minute
	pingTimeout     = 5 * time.Second
)

// Init opens the configured database, runs migrations and keeps the handle
// for GetDB.
func Init(cfg config.DatabaseConfig) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	db = conn
	return nil
}

// Open connects to PostgreSQL or SQLite depending on the URL scheme, tests
// the connection and migrates the schema.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := logging.Named("db")

	var dialector gorm.Dialector
	if cfg.IsPostgres() {
		log.Info("connecting to PostgreSQL database")
		dialector = postgres.Open(cfg.GetPostgresDSN())
	} else {
		dbPath := cfg.GetSQLitePath()
		log.Info("connecting to SQLite database", zap.String("path", dbPath))
		sqlDB, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		dialector = sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        dbPath,
			Conn:       sqlDB,
		}
	}

	// SQL statements carry visitor contact details, so GORM never logs them.
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	conn, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.IsPostgres() {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
		log.Info("connection pool configured", zap.Int("max_open", maxOpenConns), zap.Int("max_idle", maxIdleConns))
	} else {
		// One connection keeps a ":memory:" database alive and serialises
		// SQLite writers.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := ping(conn); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	log.Info("running database migrations")
	if err := Migrate(conn); err != nil {
		return nil, err
	}

	log.Info("database connected and migrated successfully")
	return conn, nil
}

// Migrate creates or updates the tables owned by this service
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&domain.User{},
		&domain.DemoRequest{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func ping(conn *gorm.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	return nil
}

// GetDB returns the database instance, or nil before Init
func GetDB() *gorm.DB {
	return db
}

// Close releases the connections held by the package handle
func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck performs a database health check
func HealthCheck(conn *gorm.DB) error {
	if conn == nil {
		return ErrNotInitialized
	}
	return ping(conn)
}

// GetStats returns database connection statistics
func GetStats(conn *gorm.DB) (*sql.DBStats, error) {
	if conn == nil {
		return nil, ErrNotInitialized
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	stats := sqlDB.Stats()
	return &stats, nil
}
