package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"tracker/internal/core/domain/model/agent"
	"tracker/internal/pkg/errs"
)

// Frame types of the live protocol. Every frame is a JSON object
// {"type": ..., "data": {...}}.
const (
	TypeAnnounceIdentity = "announceIdentity"
	TypeReportCoordinate = "reportCoordinate"
	TypePositionUpdated  = "positionUpdated"
	TypeIdentified       = "identified"
	TypeError            = "error"
)

// Error codes carried by TypeError frames.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeInvalidCoordinate = "invalid_coordinate"
	CodeNotIdentified     = "not_identified"
	CodeIdentityMismatch  = "identity_mismatch"
	CodeUnavailable       = "unavailable"
)

// ErrUnknownFrameType is returned by Decode for an unsupported "type".
var ErrUnknownFrameType = errs.NewValueIsInvalidError("frame type")

// Envelope is the wire shape shared by every frame.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AnnounceIdentity binds the connection to an agent.
type AnnounceIdentity struct {
	AgentID string `json:"agentId"`
}

// ReportCoordinate carries one location sample. AgentID is optional; when
// present it must match the announced identity.
type ReportCoordinate struct {
	AgentID   string   `json:"agentId,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// PositionUpdated is pushed to peers after a courier position was stored.
type PositionUpdated struct {
	AgentID   string  `json:"agentId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Identified acknowledges an announcement.
type Identified struct {
	AgentID string `json:"agentId"`
}

// ErrorPayload reports a rejected frame in strict mode.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientMessage is a decoded client frame: exactly one of Announce and
// Report is set.
type ClientMessage struct {
	Type     string
	Announce *AnnounceIdentity
	Report   *ReportCoordinate
}

// Decode parses a client frame.
func Decode(raw []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ClientMessage{}, errs.NewValueIsInvalidErrorWithCause("frame", err)
	}

	msg := ClientMessage{Type: env.Type}
	switch env.Type {
	case TypeAnnounceIdentity:
		msg.Announce = &AnnounceIdentity{}
		if err := decodeData(env.Data, msg.Announce); err != nil {
			return ClientMessage{}, err
		}
	case TypeReportCoordinate:
		msg.Report = &ReportCoordinate{}
		if err := decodeData(env.Data, msg.Report); err != nil {
			return ClientMessage{}, err
		}
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, env.Type)
	}
	return msg, nil
}

func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errs.NewValueIsRequiredError("data")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errs.NewValueIsInvalidErrorWithCause("data", err)
	}
	return nil
}

// Encode builds a server frame.
func Encode(frameType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: frameType, Data: data})
}

// EncodePositionUpdated builds the positionUpdated frame for event.
func EncodePositionUpdated(event agent.PositionUpdated) ([]byte, error) {
	if err := event.Location.Validate(); err != nil {
		return nil, errors.Join(errs.NewValueIsInvalidError("event"), err)
	}
	return Encode(TypePositionUpdated, PositionUpdated{
		AgentID:   event.AgentID.String(),
		Latitude:  event.Location.Latitude(),
		Longitude: event.Location.Longitude(),
	})
}

// DecodePositionUpdated parses a positionUpdated frame. Clients and tests use it.
func DecodePositionUpdated(raw []byte) (PositionUpdated, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PositionUpdated{}, err
	}
	if env.Type != TypePositionUpdated {
		return PositionUpdated{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, env.Type)
	}
	var payload PositionUpdated
	if err := decodeData(env.Data, &payload); err != nil {
		return PositionUpdated{}, err
	}
	return payload, nil
}
