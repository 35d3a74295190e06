// Package webhook signs and delivers processor-style webhooks.
//
// Sign produces a "t=1700000000,v1=5257a8..." header for a raw payload using
// stripe-go's signer, so a receiver built on stripe-go accepts it unchanged.
// Sender posts a signed payload with retries, which is handy for replaying
// captured events against a running receiver.
package webhook
