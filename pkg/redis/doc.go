// Package redis connects to Redis with go-redis/v9 and exposes a readiness
// check. Redis is optional for this service: Config.Enabled reports whether a
// URL was configured, and callers fall back to in-memory state otherwise.
package redis
