// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and an already decoded request value and
// returns a Response. Wrap runs the configured binders, calls the handler and
// renders the result; every failure (binding, Error responses, render
// errors) goes through a single ErrorHandler so JSON error bodies and log
// levels stay consistent:
//
//	mux.Post("/create-checkout-session", handler.Wrap(h.createCheckout,
//		handler.WithBinders(handler.BindJSON()),
//		handler.WithErrorHandler(handler.NewErrorHandler(log, mapBillingError)),
//	))
//
// Error bodies have the shape {"error": "...", "code": "..."}; validation
// failures additionally carry a "fields" map.
package handler
