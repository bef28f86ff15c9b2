package relay

import (
	"bytes"
	"encoding/json"
)

// DefaultMessage is sent when an event carries no usable message
const DefaultMessage = "Alert! Check your systems. (default message from Lambda)"

// Event is the invocation input. Only Message is consulted.
type Event struct {
	Message *string `json:"message,omitempty"`
}

// Response is the invocation output returned to the trigger
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// NewEvent returns an event carrying message
func NewEvent(message string) Event {
	return Event{Message: &message}
}

// ResolveMessage returns the event message, or DefaultMessage when it is
// absent. The second value reports whether the default was used.
func (e Event) ResolveMessage() (string, bool) {
	if e.Message == nil {
		return DefaultMessage, true
	}
	return *e.Message, false
}

// DecodeEvent reads an untyped JSON payload. Anything that is not an object
// with a string "message" field yields an event without a message; decoding
// never fails.
func DecodeEvent(raw []byte) Event {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Event{}
	}
	v, ok := fields["message"]
	// unmarshaling null into a string is a no-op, not an error
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return Event{}
	}
	var msg string
	if err := json.Unmarshal(v, &msg); err != nil {
		return Event{}
	}
	return Event{Message: &msg}
}
