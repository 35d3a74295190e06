// Package httpserver runs an http.Handler with sane timeouts, stops on
// SIGINT/SIGTERM or context cancellation and drains in-flight requests before
// returning. HealthCheckHandler provides liveness and readiness endpoints.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
package httpserver
