// Package localcache implements the short-TTL, read-optimizing cache in
// front of the backend.
//
// Design
//
//   - Storage: one map[string]CacheEntry guarded by a single mutex. A
//     single mutex guarding the whole map is sufficient for read-after-write
//     within one process — unlike a sharded, multi-policy general-purpose
//     cache library, LocalCache is deliberately unsharded: every key access
//     for a given page must be linearizable with every other access to that
//     same page, and a page-visit counter's working set (distinct active
//     pages) is nowhere near large enough to make lock contention the
//     bottleneck network I/O already is.
//
//   - Freshness, not eviction: entries are never removed by TTL expiry.
//     Staleness is a read-time computation (now - StampedAt > TTL), checked
//     by the caller (counter.Service), not enforced internally. This
//     matters for BumpBy, which must add to the existing count if present
//     even when that entry is stale, so a backend read-through can still be
//     reconciled against the last locally-known value. Hard TTL eviction
//     would destroy that value and is therefore not used here.
//
//   - Metrics: Hit/Miss hooks mirror a familiar cache.Metrics interface
//     shape; a NoopMetrics default means a cache built with zero options
//     never panics. Hit/Miss counters are padded
//     (internal/util.PaddedAtomicInt64) to avoid false sharing between
//     concurrent request handlers.
package localcache
