package shardclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kauxp/visit-counter/internal/ring"
)

// DefaultCallTimeout bounds a single backend call. Individual calls go
// through context.WithTimeout using this value unless the caller's context
// already carries an earlier deadline.
const DefaultCallTimeout = 2 * time.Second

// Options configures a ShardClientPool. Zero value is valid: VirtualNodes
// defaults to ring.DefaultVirtualNodes, Timeout to DefaultCallTimeout.
type Options struct {
	VirtualNodes int
	Timeout      time.Duration
}

// ShardClientPool holds one pooled connection per shard and routes a key
// to its owning client via a HashRing built once at construction. Safe for
// concurrent use: the ring is immutable and each *redis.Client is
// internally thread-safe.
type ShardClientPool struct {
	ring    *ring.HashRing
	clients map[string]*redisShardClient
	hosts   map[string]string // shard endpoint -> host tag for served_via
	timeout time.Duration
}

// New parses each shard endpoint URL, opens one pooled redis.Client per
// shard, and builds the routing ring over the shard set. An empty shard
// set is not rejected here: ring.ErrNoShardsConfigured instead surfaces
// later, from Route, keeping construction and routing errors separate.
func New(shards []string, opt Options) (*ShardClientPool, error) {
	if opt.VirtualNodes <= 0 {
		opt.VirtualNodes = ring.DefaultVirtualNodes
	}
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultCallTimeout
	}

	r, err := ring.Build(shards, opt.VirtualNodes)
	if err != nil {
		return nil, err
	}

	clients := make(map[string]*redisShardClient, len(shards))
	hosts := make(map[string]string, len(shards))
	for _, s := range shards {
		redisOpt, err := redis.ParseURL(s)
		if err != nil {
			return nil, fmt.Errorf("shardclient: parsing shard endpoint %q: %w", s, err)
		}
		clients[s] = newRedisShardClient(s, redis.NewClient(redisOpt))
		hosts[s] = hostTag(s)
	}

	return &ShardClientPool{ring: r, clients: clients, hosts: hosts, timeout: opt.Timeout}, nil
}

// ClientFor routes key to its owning shard and returns that shard's
// client along with the shard endpoint string. Routing is a pure function
// of key for a fixed shard set and virtual node count.
func (p *ShardClientPool) ClientFor(key string) (ShardClient, string, error) {
	shard, err := p.ring.Route(key)
	if err != nil {
		return nil, "", err
	}
	c, ok := p.clients[shard]
	if !ok {
		// Can only happen if ring and clients disagree on the shard set,
		// which New() never allows.
		return nil, "", &BackendUnavailable{Shard: shard, Err: fmt.Errorf("no client for shard")}
	}
	return c, shard, nil
}

// HostTag returns the served_via value for a shard endpoint: the hostname
// component of its URL, e.g. "redis://redis1:6379" -> "redis1".
func (p *ShardClientPool) HostTag(shard string) string {
	if h, ok := p.hosts[shard]; ok {
		return h
	}
	return hostTag(shard)
}

// WithTimeout returns a context bounded by the pool's configured per-call
// timeout, unless ctx already carries an earlier deadline.
func (p *ShardClientPool) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

// Close releases every shard's pooled connection.
func (p *ShardClientPool) Close() error {
	var firstErr error
	for _, c := range p.clients {
		if err := c.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// hostTag extracts the hostname component from a shard endpoint URL, e.g.
// "redis://redis1:6379" -> "redis1". Falls back to the raw endpoint if it
// doesn't parse as host:port.
func hostTag(endpoint string) string {
	rest := endpoint
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.Index(rest, "@"); i >= 0 { // strip userinfo, if present
		rest = rest[i+1:]
	}
	if i := strings.IndexAny(rest, ":/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
