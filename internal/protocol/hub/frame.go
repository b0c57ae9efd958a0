// Package hub implements the codec for the smart-home hub's WebSocket wire protocol: flat JSON objects tagged by a
// "type" field, with requests and results correlated by a numeric "id".
package hub

import (
	"encoding/json"
	"fmt"
)

// MessageType is the hub protocol's "type" tag.
type MessageType string

const (
	TypeAuthRequired    MessageType = "auth_required"
	TypeAuth            MessageType = "auth"
	TypeAuthOK          MessageType = "auth_ok"
	TypeAuthInvalid     MessageType = "auth_invalid"
	TypeResult          MessageType = "result"
	TypeEvent           MessageType = "event"
	TypePing            MessageType = "ping"
	TypePong            MessageType = "pong"
	TypeSubscribeEvents MessageType = "subscribe_events"
	TypeGetStates       MessageType = "get_states"
	TypeCallService     MessageType = "call_service"
)

// envelope is the minimal shape every hub frame shares, used to peek the type and correlation ID before decoding the
// type-specific payload.
type envelope struct {
	Type MessageType `json:"type"`
	ID   uint32      `json:"id,omitempty"`
}

// Peek decodes just enough of a raw frame to determine its message type and correlation ID, without validating the
// rest of the payload. Returns ErrMalformedFrame if raw is not valid JSON, ErrSchemaMismatch if "type" is absent.
func Peek(raw []byte) (msgType MessageType, id uint32, err error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return "", 0, fmt.Errorf("%w: missing \"type\"", ErrSchemaMismatch)
	}
	return env.Type, env.ID, nil
}

// ResultError is the {code, message} shape carried in a failed result frame.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultFrame is the {id, type: "result", success, result|error} frame correlating a prior request.
type ResultFrame struct {
	ID      uint32          `json:"id"`
	Type    MessageType     `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResultError    `json:"error,omitempty"`
}

// DecodeResult unmarshals a result frame, validating its required fields.
func DecodeResult(raw []byte) (*ResultFrame, error) {
	var f ResultFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type != TypeResult {
		return nil, fmt.Errorf("%w: expected type %q, got %q", ErrSchemaMismatch, TypeResult, f.Type)
	}
	if !f.Success && f.Error == nil {
		return nil, fmt.Errorf("%w: failed result missing \"error\"", ErrSchemaMismatch)
	}
	return &f, nil
}

// StateChangedData is the payload of a state_changed event's "data" field.
type StateChangedData struct {
	EntityID string    `json:"entity_id"`
	OldState *HAState  `json:"old_state"`
	NewState *HAState  `json:"new_state"`
}

// HAState is a hub entity's state object as embedded in get_states results and state_changed events.
type HAState struct {
	EntityID         string         `json:"entity_id"`
	State            string         `json:"state"`
	Attributes       map[string]any `json:"attributes"`
	LastChanged      string         `json:"last_changed,omitempty"`
	LastUpdated      string         `json:"last_updated,omitempty"`
}

// EventFrame is the {id, type: "event", event: {event_type, data}} frame the hub pushes for a subscription.
type EventFrame struct {
	ID    uint32          `json:"id"`
	Type  MessageType     `json:"type"`
	Event EventPayload    `json:"event"`
}

// EventPayload is the inner "event" object of an EventFrame.
type EventPayload struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	TimeFired string          `json:"time_fired,omitempty"`
}

// DecodeEvent unmarshals an event frame.
func DecodeEvent(raw []byte) (*EventFrame, error) {
	var f EventFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type != TypeEvent {
		return nil, fmt.Errorf("%w: expected type %q, got %q", ErrSchemaMismatch, TypeEvent, f.Type)
	}
	if f.Event.EventType == "" {
		return nil, fmt.Errorf("%w: event missing \"event_type\"", ErrSchemaMismatch)
	}
	return &f, nil
}

// NewAuthMessage builds the {type: auth, access_token} frame sent in response to auth_required.
func NewAuthMessage(accessToken string) ([]byte, error) {
	return json.Marshal(struct {
		Type        MessageType `json:"type"`
		AccessToken string      `json:"access_token"`
	}{TypeAuth, accessToken})
}

// NewSubscribeEventsMessage builds a subscribe_events request for the given event type.
func NewSubscribeEventsMessage(id uint32, eventType string) ([]byte, error) {
	return json.Marshal(struct {
		ID        uint32      `json:"id"`
		Type      MessageType `json:"type"`
		EventType string      `json:"event_type"`
	}{id, TypeSubscribeEvents, eventType})
}

// NewGetStatesMessage builds a get_states snapshot request.
func NewGetStatesMessage(id uint32) ([]byte, error) {
	return json.Marshal(struct {
		ID   uint32      `json:"id"`
		Type MessageType `json:"type"`
	}{id, TypeGetStates})
}

// NewCallServiceMessage builds a call_service request for the given domain/service and data payload.
func NewCallServiceMessage(id uint32, domain, service string, data map[string]any) ([]byte, error) {
	return json.Marshal(struct {
		ID          uint32         `json:"id"`
		Type        MessageType    `json:"type"`
		Domain      string         `json:"domain"`
		Service     string         `json:"service"`
		ServiceData map[string]any `json:"service_data,omitempty"`
	}{id, TypeCallService, domain, service, data})
}

// NewPingMessage builds a heartbeat ping request.
func NewPingMessage(id uint32) ([]byte, error) {
	return json.Marshal(struct {
		ID   uint32      `json:"id"`
		Type MessageType `json:"type"`
	}{id, TypePing})
}

// DecodeGetStatesResult unmarshals the "result" field of a successful get_states response into a state snapshot.
func DecodeGetStatesResult(result json.RawMessage) ([]HAState, error) {
	var states []HAState
	if err := json.Unmarshal(result, &states); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return states, nil
}

// DecodeStateChanged unmarshals a state_changed event's data field.
func DecodeStateChanged(data json.RawMessage) (*StateChangedData, error) {
	var d StateChangedData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if d.EntityID == "" {
		return nil, fmt.Errorf("%w: state_changed missing \"entity_id\"", ErrSchemaMismatch)
	}
	return &d, nil
}
