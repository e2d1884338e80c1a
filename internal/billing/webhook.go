package billing

import (
	"errors"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader is the header Stripe signs deliveries with.
const SignatureHeader = "Stripe-Signature"

var ErrMissingSignature = errors.New("missing signature")

// constructEvent verifies a Stripe delivery against the endpoint secret and
// decodes it. Events from older account API versions are accepted.
func constructEvent(payload []byte, header, secret string) (stripe.Event, error) {
	if header == "" || secret == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	return webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
}
