// Package api exposes the billing core over HTTP.
//
//	POST /create-checkout-session  start a hosted checkout, optional bearer
//	POST /create-stripe-customer   resolve the caller's processor customer, bearer
//	POST /stripe-webhook           processor webhook, verified by signature
//	GET  /subscription-status      caller's status and view, bearer
//	GET  /health/live, /health/ready
//
// Every response is JSON. Errors render as {"error": message, "code": key};
// domain errors are mapped to status codes by MapError. CORS preflight is
// answered for every route.
package api
