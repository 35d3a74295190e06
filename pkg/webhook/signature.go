package webhook

import (
	"time"

	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

// HeaderName is the header carrying the processor's signature.
const HeaderName = "Stripe-Signature"

// Sign builds a signature header for payload signed at ts, in the exact
// format the processor sends. A zero ts signs at the current time.
func Sign(secret string, payload []byte, ts time.Time) string {
	return stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}
