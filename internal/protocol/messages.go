// Package protocol defines the tagged wire messages exchanged with
// clients. Every frame is a JSON object with a "type" field; the
// envelope is decoded first, then the event-specific payload. A frame
// that fails to decode is dropped, never answered.
package protocol

import (
	"encoding/json"

	"github.com/peersight/server/internal/core"
	"github.com/peersight/server/internal/domain"
)

// Inbound event names.
const (
	TypeJoin           = "join"
	TypeHeartbeat      = "heartbeat"
	TypeConsentToggle  = "consent-toggle"
	TypeAdminSubscribe = "admin-subscribe"
	TypeRelayOffer     = "relay-offer"
	TypeRelayAnswer    = "relay-answer"
	TypeRelayICE       = "relay-ice"
)

// Outbound event names.
const (
	TypeAdminList          = "admin-list"
	TypeRoomUpdate         = "room-update"
	TypeStreamAvailability = "participant-stream-availability"
	TypeAdminOnline        = "admin-online"
	TypeAdminOffline       = "admin-offline"
)

// Envelope carries only the event tag; used to dispatch the full decode.
type Envelope struct {
	Type string `json:"type"`
}

// DecodeEnvelope extracts the event tag from a raw frame.
func DecodeEnvelope(data []byte) (string, bool) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", false
	}
	return env.Type, true
}

type Join struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

type ConsentToggle struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Allow  bool   `json:"allow"`
}

type AdminSubscribe struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
}

// RelaySignal is the inbound side of the pass-through: an addressee plus
// opaque negotiation material. The relay never inspects sdp/candidate.
type RelaySignal struct {
	Type      string          `json:"type"`
	To        string          `json:"to"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type AdminList struct {
	Type   string          `json:"type"`
	RoomID domain.RoomID   `json:"roomId"`
	Admins []domain.ConnID `json:"admins"`
}

type RoomUpdate struct {
	Type         string             `json:"type"`
	RoomID       domain.RoomID      `json:"roomId"`
	Participants []core.StreamEntry `json:"participants"`
}

type StreamAvailability struct {
	Type   string        `json:"type"`
	ConnID domain.ConnID `json:"connId"`
	UserID string        `json:"userId"`
	Allow  bool          `json:"allow"`
}

// AdminPresence announces an admin coming online or going offline to the
// room's participants.
type AdminPresence struct {
	Type        string        `json:"type"`
	AdminConnID domain.ConnID `json:"adminConnId"`
}

// RelayForward is the outbound side of the pass-through, stamped with
// the sender so the destination can answer directly.
type RelayForward struct {
	Type      string          `json:"type"`
	From      domain.ConnID   `json:"from"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}
