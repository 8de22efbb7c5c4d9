package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/salescrm/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// Database owns the shared connection pool. Country handles opened with
// Scoped reuse the pool and differ only in their table prefix.
type Database struct {
	DB      *gorm.DB
	sqlDB   *sql.DB
	logger  gormlogger.Interface
	plugins []gorm.Plugin
}

// NewDatabase opens the pool described by cfg. Plugins (tracing) are
// registered on every handle, including the scoped ones.
func NewDatabase(cfg *config.DatabaseConfig, gl gormlogger.Interface, plugins ...gorm.Plugin) (*Database, error) {
	sqlDB, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newDatabase(sqlDB, gl, plugins...)
}

func newDatabase(sqlDB *sql.DB, gl gormlogger.Interface, plugins ...gorm.Plugin) (*Database, error) {
	if gl == nil {
		gl = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	d := &Database{sqlDB: sqlDB, logger: gl, plugins: plugins}
	db, err := d.Scoped("")
	if err != nil {
		return nil, err
	}
	d.DB = db
	return d, nil
}

// Scoped opens a gorm handle on the shared pool whose tables are prefixed
// with tablePrefix, e.g. "co." for the co schema.
func (d *Database) Scoped(tablePrefix string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: d.sqlDB}), &gorm.Config{
		Logger:                 d.logger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NamingStrategy:         schema.NamingStrategy{TablePrefix: tablePrefix, SingularTable: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm handle: %w", err)
	}
	for _, p := range d.plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("failed to register gorm plugin %s: %w", p.Name(), err)
		}
	}
	return db, nil
}

// Ping checks that the pool can reach the server
func (d *Database) Ping(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// Close closes the shared pool
func (d *Database) Close() error {
	return d.sqlDB.Close()
}

// SQLDB returns the shared pool, for pool statistics
func (d *Database) SQLDB() *sql.DB {
	return d.sqlDB
}
