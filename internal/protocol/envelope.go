package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is returned when a frame is not a valid envelope or payload
var ErrMalformedMessage = errors.New("malformed message")

// Envelope is the frame exchanged over the socket in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode wraps a payload in an envelope and serializes it
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Decode parses a frame into its envelope
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event", ErrMalformedMessage)
	}
	return env, nil
}

// DecodeData parses the envelope payload into T. An absent or null payload
// yields the zero value.
func DecodeData[T any](env Envelope) (T, error) {
	var data T
	trimmed := bytes.TrimSpace(env.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return data, nil
	}
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return data, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return data, nil
}
