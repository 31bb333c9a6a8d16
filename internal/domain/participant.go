// Package domain contains entities without logic, just meta-data.
package domain

import "time"

type (
	// ConnID is the transport-assigned identifier of a live connection.
	ConnID string
	// RoomID is an opaque caller-supplied room identifier.
	RoomID string
)

const MaxDisplayNameLen = 64

// Role is the connection-local label assigned by whichever operation
// (join vs. admin subscribe) ran last. It only governs disconnect cleanup.
type Role int

const (
	RoleUnset Role = iota
	RoleParticipant
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleParticipant:
		return "participant"
	case RoleAdmin:
		return "admin"
	default:
		return "unset"
	}
}

// Participant is one connection's membership record in a room.
// UserID is client-declared and not guaranteed unique; identity is
// last-write-wins by design.
type Participant struct {
	UserID        string
	DisplayName   string
	StreamAllowed bool
	LastSeen      time.Time
}

// ParticipantPatch is a partial update merged into a Participant record.
// Empty strings and nil pointers leave the existing value untouched.
type ParticipantPatch struct {
	UserID        string
	DisplayName   string
	StreamAllowed *bool
}

// Apply merges the patch into p. LastSeen is refreshed by the store, not here.
func (pp ParticipantPatch) Apply(p *Participant) {
	if pp.UserID != "" {
		p.UserID = pp.UserID
		if p.DisplayName == "" {
			p.DisplayName = pp.UserID
		}
	}
	if pp.DisplayName != "" {
		name := pp.DisplayName
		if len(name) > MaxDisplayNameLen {
			name = name[:MaxDisplayNameLen]
		}
		p.DisplayName = name
	}
	if pp.StreamAllowed != nil {
		p.StreamAllowed = *pp.StreamAllowed
	}
}
