// Package access decides what a user may see based on their subscription
// status.
//
// DecideView is the pure routing rule. Sessions come from the auth
// provider's access tokens (SessionFromContext) and are tracked by a
// SessionWatcher that notifies subscribers once per transition. A Gate keeps
// the current view for the active session and re-checks it on demand with
// Refresh. After checkout a Poller re-reads the status at a fixed interval
// for a bounded number of attempts, since the webhook that activates the
// subscription may land after the user is redirected back.
//
// Status is read through a StatusSource: ProfileSource reads the profile
// store in-process and Client calls GET /subscription-status on a deployed
// instance.
package access
