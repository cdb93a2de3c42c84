// Package counter implements Service, the public operations of the
// page-visit counting engine: increment, get, flushAll,
// bufferStatus, and the background flusher's lifecycle.
//
// Service is the top-level collaborator that owns a writebuffer.Buffer, a
// localcache.Cache, and a shardclient.ShardClientPool, constructed once at
// startup and injected into request handlers, rather than reached through
// an ambient package-level singleton.
//
// The subtle part is buffer/cache coherence: Get must drain the
// page's buffer entry before reading the backend, or a read racing a burst
// of local increments can return a value lower than what the cache already
// acknowledged. See Service.Get.
package counter
