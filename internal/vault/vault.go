// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Wraps the HashiCorp Vault SDK with KV-v2 reads, a per-key TTL cache,
//     and background token renewal.
//   - Resolve turns a configuration reference of the form
//     "vault:<mount>/<path>#<key>" into the secret string.  The config
//     loader calls it for every value carrying the "vault:" prefix, so the
//     database password and the Redis password never sit in YAML.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, logger)              // during boot.
//  2. pw,  err := cli.Resolve(ctx, "vault:kv/db#pw")  // from config.Load.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a configuration value that must be read from Vault.
const RefPrefix = "vault:"

// ResolveTTL is how long resolved references stay cached.
const ResolveTTL = 5 * time.Minute

// ErrBadRef is returned for references that do not parse.
var ErrBadRef = errors.New("vault: malformed reference")

//
// SECTION 1.  Client
//

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api    *vault.Client
	logger *zap.Logger

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New reads VAULT_ADDR and VAULT_TOKEN from the environment and starts the
// token-renewal loop, which stops when ctx is cancelled.
func New(ctx context.Context, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.L()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:    apiCli,
		logger: logger.Named("Vault"),
		cache:  make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// Resolve reads the secret named by a "vault:<mount>/<path>#<key>" ref.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key, ResolveTTL)
}

// GetKV fetches one key from a KV-v2 secret.  With ttl > 0 the value is
// cached for that long.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		if v, ok := c.cached(canonical); ok {
			return v, nil
		}
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	c.logger.Debug("secret read", zap.String("path", secretPath), zap.String("key", key))
	return sval, nil
}

func (c *Client) cached(canonical string) (string, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	cv, ok := c.cache[canonical]
	if !ok || !time.Now().Before(cv.exp) {
		return "", false
	}
	return cv.val, true
}

//
// SECTION 2.  Token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		backoff(ctx, c.renewOnce(ctx))
	}
}

// renewOnce runs one renewer until it stops and returns how long to wait
// before the next attempt.
func (c *Client) renewOnce(ctx context.Context) time.Duration {
	sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
	if err != nil {
		c.logger.Warn("token renew-self failed", zap.Error(err))
		return 30 * time.Second
	}
	if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
		c.logger.Info("token is not renewable")
		return time.Hour
	}

	watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret: sec,
		Grace:  15 * time.Second,
	})
	if err != nil {
		c.logger.Warn("lifetime watcher init failed", zap.Error(err))
		return 30 * time.Second
	}
	go watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0
		case err := <-watcher.DoneCh():
			if err != nil {
				c.logger.Warn("token renewal stopped", zap.Error(err))
			}
			return 15 * time.Second
		case ev := <-watcher.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.logger.Debug("token renewed", zap.Int("ttl_seconds", ev.Secret.Auth.LeaseDuration))
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

// IsRef reports whether s is a Vault reference.
func IsRef(s string) bool { return strings.HasPrefix(s, RefPrefix) }

// ParseRef splits "vault:<mount>/<path>#<key>" into "<mount>/<path>" and
// "<key>".
func ParseRef(ref string) (path, key string, err error) {
	if !IsRef(ref) {
		return "", "", fmt.Errorf("%w: %q lacks the %q prefix", ErrBadRef, ref, RefPrefix)
	}
	body := strings.TrimPrefix(ref, RefPrefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || key == "" || strings.Contains(key, "#") {
		return "", "", fmt.Errorf("%w: %q needs exactly one #key", ErrBadRef, ref)
	}
	if mount, rel := splitMount(path); mount == "" || rel == "" {
		return "", "", fmt.Errorf("%w: %q needs <mount>/<path>", ErrBadRef, ref)
	}
	return path, key, nil
}

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
