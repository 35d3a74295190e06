// Package logger builds *slog.Logger instances with functional options and
// keeps attribute names consistent across the service.
//
// New picks a text or JSON handler and wraps it in LogHandlerDecorator, which
// runs registered ContextExtractor callbacks on every record. That is how the
// request id set by the requestid middleware ends up on every log line
// emitted with a request context.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "subsync"),
//		logger.WithContextExtractors(requestid.LogExtractor),
//	)
//	log.InfoContext(ctx, "customer resolved",
//		logger.UserID(user.ID),
//		logger.CustomerID(customerID),
//	)
package logger
