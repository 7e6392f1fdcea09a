// internal/configs/repository.go
//
// `configs` table helpers.
//
// Context
// -------
// The configs table is the source of truth for runtime configuration
// values (feature toggles, routing knobs) addressed by a string key.
// Reads normally hit the local cache or Redis first; see service.go.
//
// Schema reference
//
//	CREATE TABLE configs (
//	    id     BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    `key`  VARCHAR(255) NOT NULL UNIQUE,
//	    config TEXT         NOT NULL
//	);
package configs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no value is stored under the key.
var ErrNotFound = errors.New("config not found")

// Config is one stored configuration value.
type Config struct {
	Key    string `db:"key"`
	Config string `db:"config"`
}

// Storage is the relational side of the config service.
type Storage interface {
	Find(ctx context.Context, key string) (Config, error)
	Upsert(ctx context.Context, c Config) error
	Delete(ctx context.Context, key string) (bool, error)
}

// `key` is reserved in MySQL, so these use interpreted strings.
const (
	findQuery   = "SELECT `key`, config FROM configs WHERE `key` = ? LIMIT 1"
	upsertQuery = "INSERT INTO configs (`key`, config) VALUES (?, ?) ON DUPLICATE KEY UPDATE config = VALUES(config)"
	deleteQuery = "DELETE FROM configs WHERE `key` = ?"
)

// Repository implements Storage over sqlx.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

var _ Storage = (*Repository)(nil)

// Find returns the value stored under key.
func (r *Repository) Find(ctx context.Context, key string) (Config, error) {
	var c Config
	if err := r.db.GetContext(ctx, &c, findQuery, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Config{}, ErrNotFound
		}
		return Config{}, fmt.Errorf("find config %s: %w", key, err)
	}
	return c, nil
}

// Upsert inserts c or replaces the value of an existing key.
func (r *Repository) Upsert(ctx context.Context, c Config) error {
	if _, err := r.db.ExecContext(ctx, upsertQuery, c.Key, c.Config); err != nil {
		return fmt.Errorf("upsert config %s: %w", c.Key, err)
	}
	return nil
}

// Delete reports whether a row was removed.
func (r *Repository) Delete(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteQuery, key)
	if err != nil {
		return false, fmt.Errorf("delete config %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete config %s: rows affected: %w", key, err)
	}
	return n > 0, nil
}
