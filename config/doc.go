// Package config loads the counting engine's four external settings
// REDIS_NODES, VIRTUAL_NODES, FLUSH_INTERVAL_SECS, and
// CACHE_TTL_SECS.
//
// Load reads them from the environment and applies the documented
// defaults, failing fast with a descriptive error if REDIS_NODES (the one
// setting with no default) is missing or empty. New builds a Config
// programmatically via functional options, in the same Options-with-
// defaults style used elsewhere in this repo — used by tests and examples/
// that don't want to touch the process environment.
package config
