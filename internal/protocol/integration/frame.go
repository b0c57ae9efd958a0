// Package integration implements the codec for the remote-control device's native integration protocol: JSON frames
// tagged by a "kind" (req/resp/event) and a "msg" name, with requests and responses correlated by an "id".
package integration

import (
	"encoding/json"
	"fmt"
)

// Kind is the integration protocol's "kind" tag.
type Kind string

const (
	KindRequest  Kind = "req"
	KindResponse Kind = "resp"
	KindEvent    Kind = "event"
)

// Message names used on the integration side.
const (
	MsgAuth                = "auth"
	MsgGetDriverMetadata   = "get_driver_metadata"
	MsgDriverVersion       = "driver_version"
	MsgGetDeviceState      = "get_device_state"
	MsgDeviceState         = "device_state"
	MsgGetAvailableEntities = "get_available_entities"
	MsgAvailableEntities   = "available_entities"
	MsgSubscribeEvents     = "subscribe_events"
	MsgUnsubscribeEvents   = "unsubscribe_events"
	MsgGetEntityStates     = "get_entity_states"
	MsgEntityStates        = "entity_states"
	MsgEntityCommand       = "entity_command"
	MsgEntityChange        = "entity_change"
	MsgConnect             = "connect"
	MsgDisconnect          = "disconnect"
	MsgEnterStandby        = "enter_standby"
	MsgExitStandby         = "exit_standby"
	MsgSetupDriver         = "setup_driver"
	MsgSetDriverUserData   = "set_driver_user_data"
	MsgDriverSetupChange   = "driver_setup_change"
	MsgAbortDriverSetup    = "abort_driver_setup"
	MsgResult              = "result"
)

// envelope is the minimal shape every integration frame shares: kind, optional correlation id, and the message name.
type envelope struct {
	Kind Kind   `json:"kind"`
	ID   *uint32 `json:"id,omitempty"`
	Msg  string `json:"msg"`
}

// Frame is a fully decoded integration frame: kind, correlation id (zero for events), message name and the raw
// msg_data payload, decoded further by the message-specific Decode functions.
type Frame struct {
	Kind    Kind            `json:"kind"`
	ID      uint32          `json:"id,omitempty"`
	Msg     string          `json:"msg"`
	MsgData json.RawMessage `json:"msg_data,omitempty"`
}

// Decode parses a raw integration frame, validating that "kind" and "msg" are present.
func Decode(raw []byte) (*Frame, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("%w: missing \"kind\"", ErrSchemaMismatch)
	}
	if env.Msg == "" {
		return nil, fmt.Errorf("%w: missing \"msg\"", ErrSchemaMismatch)
	}
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &f, nil
}

// Encode marshals kind/id/msg/msg_data into a wire frame. id is omitted from the envelope for events.
func Encode(kind Kind, id uint32, msg string, msgData any) ([]byte, error) {
	data, err := json.Marshal(msgData)
	if err != nil {
		return nil, fmt.Errorf("marshal msg_data for %q: %w", msg, err)
	}
	type wire struct {
		Kind    Kind            `json:"kind"`
		ID      uint32          `json:"id,omitempty"`
		Msg     string          `json:"msg"`
		MsgData json.RawMessage `json:"msg_data,omitempty"`
	}
	return json.Marshal(wire{Kind: kind, ID: id, Msg: msg, MsgData: data})
}

// NewRequest builds a {kind: req} frame. id must be the session's next monotonic request id.
func NewRequest(id uint32, msg string, msgData any) ([]byte, error) {
	return Encode(KindRequest, id, msg, msgData)
}

// NewResponse builds a {kind: resp} frame correlated to a prior request id.
func NewResponse(id uint32, msg string, msgData any) ([]byte, error) {
	return Encode(KindResponse, id, msg, msgData)
}

// NewErrorResponse builds a {kind: resp, msg: result} frame carrying an error code/message instead of a result
// payload, per the result envelope used for every request acknowledgement.
func NewErrorResponse(id uint32, code ResultCode, message string) ([]byte, error) {
	return Encode(KindResponse, id, MsgResult, ResultPayload{Code: code, Message: message})
}

// NewOKResponse builds a {kind: resp, msg: result} success frame.
func NewOKResponse(id uint32) ([]byte, error) {
	return Encode(KindResponse, id, MsgResult, ResultPayload{Code: CodeOK})
}

// NewEvent builds a {kind: event} frame. Events carry no correlation id.
func NewEvent(msg string, msgData any) ([]byte, error) {
	return Encode(KindEvent, 0, msg, msgData)
}

// ResultCode is the symbolic status carried by a "result" response, matching the remote's own error taxonomy instead
// of an HTTP-style numeric status.
type ResultCode string

const (
	CodeOK           ResultCode = "OK"
	CodeNotFound     ResultCode = "NOT_FOUND"
	CodeNotSupported ResultCode = "NOT_SUPPORTED"
	CodeBadParameter ResultCode = "BAD_PARAMETER"
	CodeNotConnected ResultCode = "NOT_CONNECTED"
	CodeTimeout      ResultCode = "TIMEOUT"
	CodeAuth         ResultCode = "AUTH"
	CodeAborted      ResultCode = "ABORTED"
	CodeHubError     ResultCode = "HUB_ERROR"
)

// ResultPayload is the msg_data of a "result" response: a symbolic status code and optional human message.
type ResultPayload struct {
	Code    ResultCode `json:"code"`
	Message string     `json:"message,omitempty"`
}

// DecodeResult unmarshals a result frame's msg_data.
func DecodeResult(raw json.RawMessage) (*ResultPayload, error) {
	var p ResultPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return &p, nil
}
