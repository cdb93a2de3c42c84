package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for every setting but REDIS_NODES, which has none.
const (
	DefaultVirtualNodes  = 100
	DefaultFlushInterval = 30 * time.Second
	DefaultCacheTTL      = 5 * time.Second
)

// Config is the counting engine's external configuration.
type Config struct {
	RedisNodes    []string
	VirtualNodes  int
	FlushInterval time.Duration
	CacheTTL      time.Duration
}

// Option mutates a Config under construction. See New.
type Option func(*Config)

// WithRedisNodes sets the shard endpoint list directly.
func WithRedisNodes(nodes ...string) Option {
	return func(c *Config) { c.RedisNodes = nodes }
}

// WithVirtualNodes overrides VIRTUAL_NODES.
func WithVirtualNodes(v int) Option {
	return func(c *Config) { c.VirtualNodes = v }
}

// WithFlushInterval overrides FLUSH_INTERVAL_SECS.
func WithFlushInterval(d time.Duration) Option {
	return func(c *Config) { c.FlushInterval = d }
}

// WithCacheTTL overrides CACHE_TTL_SECS.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Config) { c.CacheTTL = d }
}

// New builds a Config from defaults plus the given options, bypassing the
// environment entirely. Useful for tests and examples/.
func New(opts ...Option) Config {
	c := Config{
		VirtualNodes:  DefaultVirtualNodes,
		FlushInterval: DefaultFlushInterval,
		CacheTTL:      DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Load reads the four settings from the process environment, applying
// defaults for everything but REDIS_NODES, which is required.
func Load() (Config, error) {
	raw := os.Getenv("REDIS_NODES")
	nodes := splitNonEmpty(raw)
	if len(nodes) == 0 {
		return Config{}, fmt.Errorf("config: REDIS_NODES is required (comma-separated shard endpoint URLs)")
	}

	virtualNodes, err := envInt("VIRTUAL_NODES", DefaultVirtualNodes)
	if err != nil {
		return Config{}, err
	}
	if virtualNodes <= 0 {
		return Config{}, fmt.Errorf("config: VIRTUAL_NODES must be positive, got %d", virtualNodes)
	}

	flushInterval, err := envSeconds("FLUSH_INTERVAL_SECS", DefaultFlushInterval)
	if err != nil {
		return Config{}, err
	}
	if flushInterval <= 0 {
		return Config{}, fmt.Errorf("config: FLUSH_INTERVAL_SECS must be positive, got %s", flushInterval)
	}

	cacheTTL, err := envSeconds("CACHE_TTL_SECS", DefaultCacheTTL)
	if err != nil {
		return Config{}, err
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("config: CACHE_TTL_SECS must be positive, got %s", cacheTTL)
	}

	return Config{
		RedisNodes:    nodes,
		VirtualNodes:  virtualNodes,
		FlushInterval: flushInterval,
		CacheTTL:      cacheTTL,
	}, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(name string, def int) (int, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", name, raw, err)
	}
	return v, nil
}

func envSeconds(name string, def time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer number of seconds: %w", name, raw, err)
	}
	return time.Duration(secs) * time.Second, nil
}
