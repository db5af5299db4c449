package billing

import (
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// VerifySignature authenticates a raw webhook payload against the ordered
// candidate secrets and returns the parsed event together with the trust
// domain whose secret verified it.
//
// The payload must be the exact bytes that were signed. Candidates are tried
// in the given order and verification short-circuits on the first match; a
// wrong secret and a malformed signature are treated the same and simply fall
// through to the next candidate.
func VerifySignature(payload []byte, sigHeader string, candidates []WebhookSecret) (stripe.Event, TrustDomain, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return stripe.Event{}, "", ErrNoSignature
	}

	for _, cand := range candidates {
		if strings.TrimSpace(cand.Secret) == "" {
			continue
		}
		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, cand.Secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			continue
		}
		return event, cand.Domain, nil
	}

	return stripe.Event{}, "", ErrInvalidSignature
}
