// Package writebuffer implements the in-process write-coalescing buffer
// that batches increments before they reach the backend.
//
// Like localcache, the buffer is a single map guarded by a single mutex —
// it is accessed from request handlers, the background flusher, and the
// read-through path, and drainAll/drainOne must be atomic
// with respect to concurrent Add calls, which a single critical section
// gives for free. Network I/O against the backend must never happen while
// holding this lock: callers drain first, release, then call the
// backend.
package writebuffer
