// Package shardclient provides the pooled, per-shard backend connections
// that the counting engine routes increments and reads through.
//
// Each configured shard endpoint gets exactly one long-lived ShardClient,
// backed by a *redis.Client from github.com/redis/go-redis/v9, held for the
// lifetime of the process. ShardClientPool routes a key to its
// owning client via an internal/ring.HashRing built once at construction.
//
// Backend calls are bounded by a per-call timeout (default 2s) and
// failures are surfaced as BackendUnavailable
// rather than the raw driver error, so callers can pattern-match on the
// offending shard without depending on go-redis internals.
package shardclient
