package db

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

type defaultMySQLDatabase struct {
	logger logger.Logger
	db     *gorm.DB
	// addr is empty for wrapped connections
	addr   string
}

// NewMySQL opens a MySQL connection pool and verifies it with a ping
func NewMySQL(log logger.Logger, cfg *Config) (Database, error) {
	log = logger.OrNop(log)
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		// merge default values for empty fields
		cfg = cfg.MergeDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	gdb, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   newGormLogger(log, parseLogLevel(cfg.LogLevel), cfg.SlowThreshold),
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, ErrConnection(addr, err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnection(addr, err)
	}

	// set connection pool settings
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// test connection
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, ErrConnection(addr, err)
	}

	log.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		zap.Duration("read_timeout", cfg.ReadTimeout),
	)

	return &defaultMySQLDatabase{logger: log, db: gdb, addr: addr}, nil
}

// Wrap adapts an already opened gorm connection
func Wrap(log logger.Logger, gdb *gorm.DB) Database {
	return &defaultMySQLDatabase{logger: logger.OrNop(log), db: gdb}
}

func parseLogLevel(level string) glogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "warn":
		return glogger.Warn
	case "info":
		return glogger.Info
	default:
		return glogger.Warn
	}
}

func (dd *defaultMySQLDatabase) DB() (*gorm.DB, error) {
	if dd.db == nil {
		return nil, ErrNotConnected
	}
	return dd.db, nil
}

func (dd *defaultMySQLDatabase) Ping(ctx context.Context) error {
	if dd.db == nil {
		return ErrNotConnected
	}
	sqldb, err := dd.db.DB()
	if err != nil {
		return ErrConnection(dd.addr, err)
	}
	return sqldb.PingContext(ctx)
}

func (dd *defaultMySQLDatabase) Close() error {
	if dd.db == nil {
		return ErrNotConnected
	}
	sqldb, err := dd.db.DB()
	if err != nil {
		return ErrConnection(dd.addr, err)
	}
	dd.logger.Info("closing database connection")
	return sqldb.Close()
}
