package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/config"
)

// Connections bundles writer and reader bun instances. With the memory
// database driver both are nil and consumers must not touch them; the
// order store falls back to its in-process backing instead.
type Connections struct {
	Writer *bun.DB
	Reader *bun.DB
}

// SQL reports whether real database connections are available.
func (c *Connections) SQL() bool {
	return c != nil && c.Writer != nil
}

// Module registers the database connections with Fx.
var Module = fx.Provide(New)

// New establishes writer and reader pools backed by Bun, or an empty
// Connections when the in-memory driver is selected.
func New(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*Connections, error) {
	if cfg.Database.InMemory() {
		logger.Info("database disabled; orders held in process memory")
		return &Connections{}, nil
	}

	writer, err := openPool(cfg.Database, cfg.Database.WriterDSN)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}

	reader := writer
	if cfg.Database.ReaderDSN != cfg.Database.WriterDSN {
		reader, err = openPool(cfg.Database, cfg.Database.ReaderDSN)
		if err != nil {
			return nil, fmt.Errorf("open reader: %w", err)
		}
	}

	conns := &Connections{Writer: writer, Reader: reader}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pingContext(ctx, writer); err != nil {
				return fmt.Errorf("ping writer: %w", err)
			}
			if reader != writer {
				if err := pingContext(ctx, reader); err != nil {
					return fmt.Errorf("ping reader: %w", err)
				}
			}
			logger.Info("database connected", zap.String("driver", cfg.Database.Driver))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var closeErr error
			if err := writer.Close(); err != nil {
				closeErr = fmt.Errorf("close writer: %w", err)
			}
			if reader != writer {
				if err := reader.Close(); err != nil && closeErr == nil {
					closeErr = fmt.Errorf("close reader: %w", err)
				}
			}
			return closeErr
		},
	})

	return conns, nil
}

// openPool opens a sql pool for the configured driver, applies pool
// limits, and wraps it in a bun.DB with the matching dialect.
func openPool(cfg config.Database, dsn string) (*bun.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DSN")
	}

	var (
		sqldb *sql.DB
		dial  schema.Dialect
		err   error
	)
	switch cfg.Driver {
	case "postgres":
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		dial = pgdialect.New()
	case "mysql":
		sqldb, err = sql.Open("mysql", dsn)
		dial = mysqldialect.New()
	case "sqlite":
		sqldb, err = sql.Open("sqlite3", dsn)
		dial = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}

	return bun.NewDB(sqldb, dial), nil
}

func pingContext(ctx context.Context, db *bun.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.DB.PingContext(pingCtx)
}
