// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `PAYCORE_`, where `__` maps to "."
     (e.g., `PAYCORE_REDIS__ADDR → redis.addr`).

After merging, every string value starting with `vault:` is replaced by
the secret it names, then the tree is unmarshalled, defaulted, validated,
and stored in an `atomic.Pointer` for lock-free reads through `Get()`.
`Reload()` calls `Load()` again and swaps the pointer; a failed reload
leaves the previous Config in place.

Instrumentation
---------------
  - DEBUG: root discovery, YAML read, each resolved secret path.
  - ERROR: YAML parse, env overlay, resolve, unmarshal, validation.
  - INFO:  final "config loaded" with key highlights (never secrets).
  - Logs go through the global sugared logger (`zap.S()`) so failures
    surface even before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix  = "PAYCORE_"
	rootEnv    = "PAYCORE_ROOT"
	secretRef  = "vault:"
	configFile = "global.yaml"
)

// SecretResolver turns a `vault:<mount>/<path>#<key>` reference into the
// secret value.  *vault.Client satisfies it.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves PAYCORE_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to the executable's parent when it
// lives in bin/.
func rootDir() string {
	if r := os.Getenv(rootEnv); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", configFile)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides, resolves secrets, validates,
// and caches the Config.  resolver may be nil when no value uses `vault:`.
func Load(ctx context.Context, resolver SecretResolver) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", configFile)
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, resolver); err != nil {
		zap.S().Errorw("config secret resolve failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.applyDefaults()
	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"redis_addr", cfg.Redis.Addr,
		"log_level", cfg.Log.Level,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps PAYCORE_HTTP__LISTEN_ADDR to http.listen_addr.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func resolveSecrets(ctx context.Context, k *koanf.Koanf, resolver SecretResolver) error {
	keys := k.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		ref, ok := k.Get(key).(string)
		if !ok || !strings.HasPrefix(ref, secretRef) {
			continue
		}
		if resolver == nil {
			return fmt.Errorf("%s: vault reference but no resolver configured", key)
		}
		val, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		zap.S().Debugw("config secret resolved", "key", key)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last loaded Config, or nil before the first Load.
func Get() *Config { return current.Load() }

// Reload re-reads every layer.  On error the previous Config stays current.
func Reload(ctx context.Context, resolver SecretResolver) error {
	_, err := Load(ctx, resolver)
	return err
}
