// Package cache provides a generic in-process LRU cache with optional TTL.
//
// Add gives set-if-absent semantics, which makes the cache usable as a
// bounded "seen ids" log when no shared store is configured.
package cache
