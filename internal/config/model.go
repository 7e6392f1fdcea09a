// internal/config/model.go
//
// Typed configuration model.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   - optional `.env`                           – dotenv values,
//   - `conf/global.yaml`                        – primary static file,
//   - `PAYCORE_`-prefixed environment overrides – highest precedence.
//
// Any string value beginning with `vault:` is resolved through the
// SecretResolver before unmarshalling, so the model only ever holds plain
// strings.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`.  Durations accept Go syntax ("30s").
//   - Zero-valued tunables are filled by applyDefaults after unmarshal.
//   - The `Paths` block is filled at runtime; YAML must not try to set it.
package config

import (
	"fmt"
	"time"
)

//
// HTTP section
//

// HTTP holds admin-server tunables.
type HTTP struct {
	ListenAddr      string        `koanf:"listen_addr"      validate:"required,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The template stays in YAML so operators can change host, port, or flags
// without touching Vault.  The password is usually a `vault:` reference.
type Database struct {
	DSN             string        `koanf:"dsn"               validate:"required,dsn_template"`
	Password        string        `koanf:"password"          validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
}

// ConnString fills the template's single %s with the password.
func (d Database) ConnString() string { return fmt.Sprintf(d.DSN, d.Password) }

//
// Redis section
//

// Redis configures the shared cache tier.
type Redis struct {
	Addr         string        `koanf:"addr"          validate:"required,hostname_port"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"            validate:"gte=0,lte=15"`
	DialTimeout  time.Duration `koanf:"dial_timeout"  validate:"gte=0"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	DefaultTTL   time.Duration `koanf:"default_ttl"   validate:"gte=0"`
}

//
// Cache section
//

// Cache tunes the process-local configuration cache.
type Cache struct {
	IdleTTL       time.Duration `koanf:"idle_ttl"       validate:"gte=0"`
	MaxEntries    int           `koanf:"max_entries"    validate:"gte=0"`
	EvictInterval time.Duration `koanf:"evict_interval" validate:"gte=0"`
}

//
// Log section
//

// Log controls the zap logger.
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.  Root is PAYCORE_ROOT or the discovered
// directory holding conf/global.yaml.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Cache    Cache    `koanf:"cache"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"`
}

func (c *Config) applyDefaults() {
	setDuration(&c.HTTP.ReadTimeout, 10*time.Second)
	setDuration(&c.HTTP.WriteTimeout, 15*time.Second)
	setDuration(&c.HTTP.IdleTimeout, 60*time.Second)
	setDuration(&c.HTTP.ShutdownTimeout, 20*time.Second)

	setInt(&c.Database.MaxOpenConns, 15)
	setInt(&c.Database.MaxIdleConns, 5)
	setDuration(&c.Database.ConnMaxLifetime, 30*time.Minute)

	setDuration(&c.Redis.DialTimeout, 5*time.Second)
	setDuration(&c.Redis.ReadTimeout, 3*time.Second)
	setDuration(&c.Redis.WriteTimeout, 3*time.Second)
	setDuration(&c.Redis.DefaultTTL, time.Hour)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d == 0 {
		*d = def
	}
}

func setInt(n *int, def int) {
	if *n == 0 {
		*n = def
	}
}
