// Package ring implements a consistent-hash ring mapping arbitrary string
// keys onto a fixed set of shard identifiers.
//
// Design
//
//   - Construction: Build computes V virtual nodes per shard (ring position
//     = MD5("<shard>:<replica>") reinterpreted as a big-endian 128-bit
//     integer), and keeps the resulting (position, shard) pairs sorted by
//     position. The ring is immutable after Build returns — reads need no
//     lock.
//
//   - Routing: Route hashes the key the same way and returns the shard of
//     the first ring entry whose position is strictly greater than the
//     key's hash, wrapping to index 0 past the end. This is the classic
//     "first node clockwise of the key" consistent-hash lookup — adding or
//     removing a shard only moves the keys that were mapped to virtual
//     nodes adjacent to the change.
//
//   - Determinism: Route is a pure function of (shard set, V, key). Two
//     rings built from the same shards and V route every key identically.
//
// Basic usage
//
//	r, err := ring.Build([]string{"redis://r1:6379", "redis://r2:6379"}, 100)
//	if err != nil { ... }
//	shard, err := r.Route("page-123")
package ring
