// Package requestid tags every HTTP request with a correlation id.
//
// Middleware reuses a valid incoming X-Request-ID header or generates a UUID,
// stores it in the request context and echoes it in the response. Register
// LogExtractor with the logger so every record written with the request
// context carries the same id.
package requestid
