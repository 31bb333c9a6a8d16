package app

import (
	"sync"

	"github.com/peersight/server/internal/core"
	"github.com/peersight/server/internal/domain"
	"github.com/peersight/server/internal/protocol"
	"github.com/rs/zerolog/log"
)

// connState is the small per-connection local state kept for the
// lifetime of the connection: role label, bound room, declared user.
type connState struct {
	role   domain.Role
	roomID domain.RoomID
	userID string
}

// Sessions is the session protocol handler. It interprets each inbound
// event against connection-local state, drives Roster mutations and
// decides what to relay where.
//
// One mutex is held for the whole event-handling unit (state read, store
// mutation, derived-view query, resulting sends). That is what keeps
// every admin broadcast a stable snapshot with respect to racing
// join/consent/disconnect events; sends never block, so holding the lock
// across them is safe.
type Sessions struct {
	mu     sync.Mutex
	roster *core.Roster
	relay  *Relay
	states map[domain.ConnID]*connState
}

func NewSessions(roster *core.Roster, relay *Relay) *Sessions {
	return &Sessions{
		roster: roster,
		relay:  relay,
		states: make(map[domain.ConnID]*connState),
	}
}

// Connect binds a freshly established connection. Role and room start
// unset; nothing is broadcast until the client declares itself.
func (s *Sessions) Connect(connID domain.ConnID, conn core.SignalConnection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[connID] = &connState{role: domain.RoleUnset}
	s.relay.Bind(connID, conn)
	log.Info().Str("module", "app.sessions").Str("conn", string(connID)).Msg("connected")
}

// Join makes the connection a participant of the room. Missing roomId or
// userId means the event is ignored outright.
func (s *Sessions) Join(connID domain.ConnID, p protocol.Join) {
	if p.RoomID == "" || p.UserID == "" {
		log.Debug().Str("module", "app.sessions").Str("conn", string(connID)).Msg("join missing required fields, ignored")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[connID]
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	st.role = domain.RoleParticipant
	st.roomID = roomID
	st.userID = p.UserID

	s.roster.EnsureRoom(roomID)
	s.relay.JoinGroup(RoomGroup(roomID), connID)
	s.roster.UpsertParticipant(roomID, connID, domain.ParticipantPatch{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
	})

	s.relay.SendTo(connID, protocol.AdminList{
		Type:   protocol.TypeAdminList,
		RoomID: roomID,
		Admins: s.roster.Admins(roomID),
	})
	s.broadcastRoom(roomID)
	log.Info().Str("module", "app.sessions").Str("conn", string(connID)).
		Str("room", string(roomID)).Str("user", p.UserID).Msg("joined")
}

// Heartbeat refreshes LastSeen. A connection with no room yet has
// nothing to refresh.
func (s *Sessions) Heartbeat(connID domain.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[connID]
	if !ok || st.roomID == "" {
		return
	}
	s.roster.UpsertParticipant(st.roomID, connID, domain.ParticipantPatch{})
	s.broadcastRoom(st.roomID)
}

// Consent flips the connection's streaming consent in the room named by
// the event. The room bound at join time is deliberately left alone:
// the event's own roomId governs where the record lives.
func (s *Sessions) Consent(connID domain.ConnID, p protocol.ConsentToggle) {
	if p.RoomID == "" || p.UserID == "" {
		log.Debug().Str("module", "app.sessions").Str("conn", string(connID)).Msg("consent missing required fields, ignored")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[connID]
	if !ok {
		return
	}
	st.userID = p.UserID
	roomID := domain.RoomID(p.RoomID)
	allow := p.Allow
	s.roster.UpsertParticipant(roomID, connID, domain.ParticipantPatch{
		UserID:        p.UserID,
		StreamAllowed: &allow,
	})

	s.relay.SendTo(connID, protocol.AdminList{
		Type:   protocol.TypeAdminList,
		RoomID: roomID,
		Admins: s.roster.Admins(roomID),
	})
	s.broadcastRoom(roomID)
	// Incremental notification so admins already tracking this
	// participant can react without re-deriving the whole list.
	s.relay.SendGroup(AdminGroup(roomID), protocol.StreamAvailability{
		Type:   protocol.TypeStreamAvailability,
		ConnID: connID,
		UserID: p.UserID,
		Allow:  allow,
	})
	log.Info().Str("module", "app.sessions").Str("conn", string(connID)).
		Str("room", string(roomID)).Bool("allow", allow).Msg("consent toggled")
}

// AdminSubscribe registers the connection as an admin observer. Any
// client may do this; there is no authorization step here by design.
func (s *Sessions) AdminSubscribe(connID domain.ConnID, p protocol.AdminSubscribe) {
	if p.RoomID == "" {
		log.Debug().Str("module", "app.sessions").Str("conn", string(connID)).Msg("subscribe missing roomId, ignored")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[connID]
	if !ok {
		return
	}
	roomID := domain.RoomID(p.RoomID)
	st.role = domain.RoleAdmin
	st.roomID = roomID

	s.roster.EnsureRoom(roomID)
	s.roster.AddAdmin(roomID, connID)
	s.relay.JoinGroup(AdminGroup(roomID), connID)

	s.relay.SendTo(connID, protocol.RoomUpdate{
		Type:         protocol.TypeRoomUpdate,
		RoomID:       roomID,
		Participants: s.roster.StreamSnapshot(roomID),
	})
	// Consenting participants may proactively dial the new admin.
	s.relay.SendGroup(RoomGroup(roomID), protocol.AdminPresence{
		Type:        protocol.TypeAdminOnline,
		AdminConnID: connID,
	})
	log.Info().Str("module", "app.sessions").Str("conn", string(connID)).
		Str("room", string(roomID)).Msg("admin subscribed")
}

// RelaySignal forwards opaque negotiation payloads to a destination
// connection, stamped with the sender. No room check, no payload
// validation: the relay is protocol-agnostic about what it carries.
func (s *Sessions) RelaySignal(connID domain.ConnID, p protocol.RelaySignal) {
	if p.To == "" {
		return
	}
	s.relay.SendTo(domain.ConnID(p.To), protocol.RelayForward{
		Type:      p.Type,
		From:      connID,
		SDP:       p.SDP,
		Candidate: p.Candidate,
	})
}

// Disconnect is synthesized by the lifecycle glue exactly once per
// connection. Cleanup follows the role label set by whichever of
// join/subscribe ran last.
func (s *Sessions) Disconnect(connID domain.ConnID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[connID]
	if !ok {
		return
	}
	delete(s.states, connID)
	s.relay.Unbind(connID)
	if st.roomID == "" {
		return
	}

	switch st.role {
	case domain.RoleAdmin:
		s.roster.RemoveAdmin(st.roomID, connID)
		s.relay.SendGroup(RoomGroup(st.roomID), protocol.AdminPresence{
			Type:        protocol.TypeAdminOffline,
			AdminConnID: connID,
		})
	case domain.RoleParticipant:
		s.roster.RemoveParticipant(st.roomID, connID)
	}
	// Runs even for a pure-admin departure; the recompute is cheap and
	// keeps dashboards current without special-casing.
	s.broadcastRoom(st.roomID)
	log.Info().Str("module", "app.sessions").Str("conn", string(connID)).
		Str("room", string(st.roomID)).Str("role", st.role.String()).Msg("disconnected")
}

// Stats exposes roster summaries to the REST shell under the same
// serialization discipline as event handling.
func (s *Sessions) Stats() []core.RoomStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Stats()
}

// broadcastRoom is the single synchronization primitive keeping admin
// observers consistent: a fresh snapshot to the whole admin group after
// every event that could change the derived view. Callers hold s.mu.
func (s *Sessions) broadcastRoom(roomID domain.RoomID) {
	s.relay.SendGroup(AdminGroup(roomID), protocol.RoomUpdate{
		Type:         protocol.TypeRoomUpdate,
		RoomID:       roomID,
		Participants: s.roster.StreamSnapshot(roomID),
	})
}
