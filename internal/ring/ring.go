package ring

import (
	"bytes"
	"crypto/md5" //nolint:gosec // MD5 used only for uniform hash distribution, not security
	"errors"
	"fmt"
	"sort"
)

// DefaultVirtualNodes is V, the number of virtual nodes placed on the ring
// per physical shard, used when the caller doesn't override it.
const DefaultVirtualNodes = 100

// ErrNoShardsConfigured is returned by Route when the ring has no shards.
var ErrNoShardsConfigured = errors.New("ring: no shards configured")

// entry is one virtual node's position on the ring. pos is a 128-bit MD5
// digest compared as a big-endian integer via byte-lexicographic ordering.
type entry struct {
	pos   [md5.Size]byte
	shard string
}

// HashRing is an immutable consistent-hash ring over a fixed shard set.
// The zero value is not usable; construct with Build.
type HashRing struct {
	entries []entry // sorted ascending by pos, ties broken by shard
}

// Build places V virtual nodes per shard on the ring and returns the
// resulting immutable HashRing. shards must be non-empty; duplicates are
// collapsed (a repeated shard id simply gets its virtual nodes computed
// twice, which is harmless but wasteful — callers should de-duplicate
// upstream). V <= 0 is replaced with DefaultVirtualNodes.
//
// Build never returns an error by itself; Route on a ring built from an
// empty shard slice returns ErrNoShardsConfigured instead, so an empty
// ring is diagnosed at routing time, not construction time.
func Build(shards []string, v int) (*HashRing, error) {
	if v <= 0 {
		v = DefaultVirtualNodes
	}

	entries := make([]entry, 0, len(shards)*v)
	for _, s := range shards {
		for i := 0; i < v; i++ {
			entries = append(entries, entry{
				pos:   md5.Sum([]byte(fmt.Sprintf("%s:%d", s, i))), //nolint:gosec
				shard: s,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		c := bytes.Compare(entries[i].pos[:], entries[j].pos[:])
		if c != 0 {
			return c < 0
		}
		// Astronomically rare 128-bit collision: break ties deterministically
		// so two independently built rings still agree.
		return entries[i].shard < entries[j].shard
	})

	return &HashRing{entries: entries}, nil
}

// Route returns the shard owning key: the shard of the first ring entry
// whose position is strictly greater than H(key), wrapping to the first
// entry if key's hash is greater than every ring position.
func (r *HashRing) Route(key string) (string, error) {
	if len(r.entries) == 0 {
		return "", ErrNoShardsConfigured
	}

	h := md5.Sum([]byte(key)) //nolint:gosec
	idx := sort.Search(len(r.entries), func(i int) bool {
		return bytes.Compare(r.entries[i].pos[:], h[:]) > 0
	})
	if idx >= len(r.entries) {
		idx = 0
	}
	return r.entries[idx].shard, nil
}

// Size returns the total number of virtual nodes on the ring
// (len(shards) * V), used by tests to check invariant I1.
func (r *HashRing) Size() int {
	return len(r.entries)
}
