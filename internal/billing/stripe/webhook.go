package stripe

import (
	"fmt"

	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/MrJamesThe3rd/dinherin/internal/billing"
)

// Verifier authenticates webhook deliveries against the endpoint secret.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(payload []byte, signature string) (*billing.Event, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", billing.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", billing.ErrInvalidSignature, err)
	}

	ev := &billing.Event{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: payload,
	}
	if event.Data != nil {
		ev.Object = event.Data.Raw
	}

	return ev, nil
}
