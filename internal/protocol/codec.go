// Package protocol converts between game messages and the JSON envelope
// exchanged with clients: {"event": <name>, "body": <value>}.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"mazewars/internal/game"
)

var (
	// ErrMalformed is returned for input that is not a JSON object.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownEvent is returned for envelopes whose event name is not a
	// client event.
	ErrUnknownEvent = errors.New("unknown event")
)

// DefaultPlayerName is used when a Hello carries no usable name.
const DefaultPlayerName = "player"

// Envelope is the wire frame.
type Envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// DecodeInbound parses a client frame. Body fields of the wrong type fall back
// to their defaults rather than failing the whole message.
func DecodeInbound(data []byte) (game.InboundMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, ErrMalformed
	}

	var event string
	if v, ok := raw["event"]; ok {
		_ = json.Unmarshal(v, &event)
	}
	body := objectFields(raw["body"])

	switch event {
	case "Hello", "hello":
		name, ok := stringField(body, "name")
		if !ok {
			name = DefaultPlayerName
		}
		return game.Hello{Name: name}, nil
	case "Input":
		return game.Input{DX: intField(body, "dx"), DY: intField(body, "dy")}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
}

// Encode frames an outbound event.
func Encode(out game.OutboundMessage) ([]byte, error) {
	body, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", out.Event(), err)
	}
	return json.Marshal(Envelope{Event: out.Event(), Body: body})
}

// EncodeInbound frames a client event. Disconnect has no wire form.
func EncodeInbound(msg game.InboundMessage) ([]byte, error) {
	switch m := msg.(type) {
	case game.Hello:
		return encodeEnvelope("Hello", struct {
			Name string `json:"name"`
		}{m.Name})
	case game.Input:
		return encodeEnvelope("Input", struct {
			DX int `json:"dx"`
			DY int `json:"dy"`
		}{m.DX, m.DY})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, msg)
	}
}

// DecodeEnvelope splits a frame into event name and raw body without
// interpreting the body.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, nil
}

func encodeEnvelope(event string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Body: b})
}

func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || string(v) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// intField reads an integral JSON number. Fractions, strings and values
// outside int64 yield 0.
func intField(fields map[string]json.RawMessage, key string) int {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		return 0
	}
	return int(n)
}
