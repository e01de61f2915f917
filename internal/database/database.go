package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // CGO-free SQLite, registered as "sqlite"

	"github.com/vincentbai/browsetrace-server/internal/config"
	"github.com/vincentbai/browsetrace-server/internal/logger"
	"github.com/vincentbai/browsetrace-server/internal/models"
)

type Database struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDatabase opens the store described by cfg and creates any missing
// tables. Credentials are only consulted for networked backends.
func NewDatabase(cfg config.DatabaseConfig, creds config.Credentials, log *logger.Logger) (*Database, error) {
	dialector, err := dialectorFor(cfg, creds)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.PoolRecycleSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.PoolRecycleSeconds) * time.Second)
	}

	d := &Database{db: db, log: log.With("service", "Database", "driver", cfg.Type)}
	if err := d.CreateTables(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

// NewSQLite opens (or creates) a SQLite database at path.
func NewSQLite(path string, log *logger.Logger) (*Database, error) {
	return NewDatabase(config.DatabaseConfig{Type: config.DriverSQLite, Path: path}, config.Credentials{}, log)
}

func dialectorFor(cfg config.DatabaseConfig, creds config.Credentials) (gorm.Dialector, error) {
	switch cfg.Type {
	case config.DriverSQLite, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite database requires a path")
		}
		// WAL + busy timeout to avoid "database is locked"
		dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		return &sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, nil
	case config.DriverPostgres:
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(creds.User, creds.Pass),
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return postgres.Open(dsn.String()), nil
	case config.DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true",
			creds.User, creds.Pass, cfg.Host, cfg.Port, cfg.Name)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// CreateTables creates missing tables and indexes. Existing tables are never
// altered beyond what AutoMigrate adds.
func (d *Database) CreateTables() error {
	if err := d.db.AutoMigrate(models.All()...); err != nil {
		d.log.Error("failed to create database tables", "error", err)
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection, for the health endpoint.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Session returns a persistence handle bound to ctx. It must not outlive the
// request that created it.
func (d *Database) Session(ctx context.Context) *Session {
	return &Session{tx: d.db.WithContext(ctx), log: d.log}
}
