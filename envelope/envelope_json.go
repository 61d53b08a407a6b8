package envelope

import (
	"encoding/json"
	"fmt"
)

// Marshal serializes a validated envelope to JSON.
func Marshal(e *Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope JSON: %w", err)
	}
	return b, nil
}

// Unmarshal deserializes an envelope from JSON and validates it; bytes
// that parse but violate the envelope invariants are rejected.
func Unmarshal(message json.RawMessage) (*Envelope, error) {
	e := &Envelope{}
	if err := json.Unmarshal(message, e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
