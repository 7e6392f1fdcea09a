// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql; the DSN must carry parseTime=true so DATETIME
// columns scan into time.Time.
//
// Public entry points:
//
//	Open(ctx, dsn)                  – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, opts) – fine-grained control and ping retries.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers Close() the returned *sqlx.DB at shutdown.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const driverName = "mysql"

// Options tunes the pool.  Zero fields fall back to the defaults used by
// Open: 15 open, 5 idle, 30-minute lifetime, 3 ping attempts 2 s apart.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int
	RetryBackoff    time.Duration
	Logger          *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 15
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 5
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.L()
	}
	return o
}

// Open returns a *sqlx.DB with the default Options.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, Options{})
}

// OpenWithOptions opens a pool and pings it, retrying up to opts.Retries
// times.  The DSN is never logged.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	return open(ctx, driverName, dsn, opts.withDefaults())
}

func open(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	log := opts.Logger.Named("Database")
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			log.Info("database online", zap.Int("attempt", attempt))
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		log.Warn("database ping failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("backoff", opts.RetryBackoff), zap.Error(err))

		t := time.NewTimer(opts.RetryBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = db.Close()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database ping after %d attempts: %w", opts.Retries, err)
}
