package config

import (
	"testing"
	"time"
)

func TestLoad_MissingRedisNodes(t *testing.T) {
	t.Setenv("REDIS_NODES", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when REDIS_NODES is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REDIS_NODES", "redis://r1:6379, redis://r2:6379")
	t.Setenv("VIRTUAL_NODES", "")
	t.Setenv("FLUSH_INTERVAL_SECS", "")
	t.Setenv("CACHE_TTL_SECS", "")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.RedisNodes) != 2 {
		t.Fatalf("RedisNodes = %v, want 2 entries", c.RedisNodes)
	}
	if c.RedisNodes[0] != "redis://r1:6379" || c.RedisNodes[1] != "redis://r2:6379" {
		t.Fatalf("RedisNodes = %v, want trimmed entries", c.RedisNodes)
	}
	if c.VirtualNodes != DefaultVirtualNodes {
		t.Fatalf("VirtualNodes = %d, want default %d", c.VirtualNodes, DefaultVirtualNodes)
	}
	if c.FlushInterval != DefaultFlushInterval {
		t.Fatalf("FlushInterval = %v, want default %v", c.FlushInterval, DefaultFlushInterval)
	}
	if c.CacheTTL != DefaultCacheTTL {
		t.Fatalf("CacheTTL = %v, want default %v", c.CacheTTL, DefaultCacheTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REDIS_NODES", "redis://r1:6379")
	t.Setenv("VIRTUAL_NODES", "50")
	t.Setenv("FLUSH_INTERVAL_SECS", "10")
	t.Setenv("CACHE_TTL_SECS", "2")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.VirtualNodes != 50 {
		t.Fatalf("VirtualNodes = %d, want 50", c.VirtualNodes)
	}
	if c.FlushInterval != 10*time.Second {
		t.Fatalf("FlushInterval = %v, want 10s", c.FlushInterval)
	}
	if c.CacheTTL != 2*time.Second {
		t.Fatalf("CacheTTL = %v, want 2s", c.CacheTTL)
	}
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("REDIS_NODES", "redis://r1:6379")
	t.Setenv("VIRTUAL_NODES", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-integer VIRTUAL_NODES")
	}
}

func TestNew_FunctionalOptions(t *testing.T) {
	c := New(
		WithRedisNodes("redis://a", "redis://b"),
		WithVirtualNodes(10),
		WithFlushInterval(time.Second),
		WithCacheTTL(500*time.Millisecond),
	)
	if len(c.RedisNodes) != 2 {
		t.Fatalf("RedisNodes = %v", c.RedisNodes)
	}
	if c.VirtualNodes != 10 || c.FlushInterval != time.Second || c.CacheTTL != 500*time.Millisecond {
		t.Fatalf("unexpected Config: %+v", c)
	}
}
