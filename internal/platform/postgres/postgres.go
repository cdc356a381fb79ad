package postgres

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/northcampus/gradebook-backend/internal/domain"
	"github.com/northcampus/gradebook-backend/internal/platform/envutil"
	"github.com/northcampus/gradebook-backend/internal/platform/logger"
)

// Config carries explicit connection settings so callers construct the
// handle instead of reaching for ambient globals. FromEnv fills it from the
// process environment for the cmd entrypoints.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func FromEnv() Config {
	return Config{
		Host:            envutil.String("POSTGRES_HOST", "localhost"),
		Port:            envutil.String("POSTGRES_PORT", "5432"),
		User:            envutil.String("POSTGRES_USER", "postgres"),
		Password:        envutil.String("POSTGRES_PASSWORD", ""),
		Name:            envutil.String("POSTGRES_NAME", "gradebook"),
		SSLMode:         envutil.String("POSTGRES_SSLMODE", "disable"),
		MaxOpenConns:    envutil.Int("POSTGRES_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    envutil.Int("POSTGRES_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// Handle is the explicitly constructed, dependency-injected store handle
// shared by every component. Lifecycle: New -> (AutoMigrateAll) -> use ->
// Close. There is no package-level singleton.
type Handle struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(cfg Config, baseLog *logger.Logger) (*Handle, error) {
	log := baseLog.With("service", "PostgresHandle")

	log.Info("connecting to postgres", "host", cfg.Host, "db", cfg.Name)
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
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

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("enable uuid-ossp extension: %w", err)
	}

	return &Handle{db: db, log: log}, nil
}

func (h *Handle) DB() *gorm.DB {
	if h == nil {
		return nil
	}
	return h.db
}

// AutoMigrateAll migrates every owned table plus the read-only catalog
// tables, in dependency order.
func (h *Handle) AutoMigrateAll() error {
	if h == nil || h.db == nil {
		return fmt.Errorf("postgres handle not initialized")
	}
	h.log.Info("auto migrating postgres tables")
	if err := h.db.AutoMigrate(types.AllModels()...); err != nil {
		h.log.Error("auto migration failed", "error", err)
		return err
	}
	return nil
}

// Close releases the underlying connection pool. The handle is unusable
// afterwards.
func (h *Handle) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	h.log.Info("closing postgres connection pool")
	return sqlDB.Close()
}
