package billing

import (
	"encoding/json"
	"errors"
)

// ErrInvalidSignature is returned when a webhook payload cannot be
// authenticated as coming from the provider.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is a verified provider webhook event.
type Event struct {
	ID   string
	Type string
	// Object is the raw data.object of the event.
	Object json.RawMessage
	// Payload is the full request body as received.
	Payload []byte
}
