package core

import (
	"slices"
	"strings"
	"time"

	"github.com/peersight/server/internal/domain"
	"github.com/rs/zerolog/log"
)

// StreamEntry is the read-only admin-facing view of one consenting
// participant. This is the only shape admins ever see.
type StreamEntry struct {
	ConnID      domain.ConnID `json:"connId"`
	UserID      string        `json:"userId"`
	DisplayName string        `json:"displayName"`
	LastSeen    int64         `json:"lastSeen"`
}

// RoomStats is a coarse per-room summary for the REST shell.
type RoomStats struct {
	RoomID       domain.RoomID `json:"roomId"`
	Participants int           `json:"participants"`
	Admins       int           `json:"admins"`
}

type roomEntry struct {
	participants map[domain.ConnID]*domain.Participant
	admins       map[domain.ConnID]struct{}
}

// Roster owns all room membership data: participants and admin
// registrations, keyed by room. It performs no locking of its own;
// the session handler serializes access around whole event-handling
// units, never around individual map operations.
type Roster struct {
	rooms map[domain.RoomID]*roomEntry

	// now is swappable in tests; every upsert stamps LastSeen with it.
	now func() time.Time
}

func NewRoster() *Roster {
	return NewRosterWithClock(time.Now)
}

// NewRosterWithClock lets tests pin LastSeen stamps.
func NewRosterWithClock(now func() time.Time) *Roster {
	return &Roster{
		rooms: make(map[domain.RoomID]*roomEntry),
		now:   now,
	}
}

// EnsureRoom creates empty membership sets for the room if absent.
// Rooms are never deleted; an empty room simply stays empty.
func (r *Roster) EnsureRoom(roomID domain.RoomID) {
	if _, ok := r.rooms[roomID]; ok {
		return
	}
	r.rooms[roomID] = &roomEntry{
		participants: make(map[domain.ConnID]*domain.Participant),
		admins:       make(map[domain.ConnID]struct{}),
	}
	log.Debug().Str("module", "core.roster").Str("room", string(roomID)).Msg("room created")
}

// UpsertParticipant merges patch into the connection's record, creating
// it if needed, and always refreshes LastSeen. Patch contents are not
// validated here; the session handler owns required-field checks.
func (r *Roster) UpsertParticipant(roomID domain.RoomID, connID domain.ConnID, patch domain.ParticipantPatch) {
	r.EnsureRoom(roomID)
	room := r.rooms[roomID]
	p, ok := room.participants[connID]
	if !ok {
		p = &domain.Participant{}
		room.participants[connID] = p
	}
	patch.Apply(p)
	p.LastSeen = r.now()
}

// RemoveParticipant deletes the record if present; no-op otherwise.
func (r *Roster) RemoveParticipant(roomID domain.RoomID, connID domain.ConnID) {
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(room.participants, connID)
}

// AddAdmin registers the connection as an admin observer of the room.
// Re-registration is idempotent.
func (r *Roster) AddAdmin(roomID domain.RoomID, connID domain.ConnID) {
	r.EnsureRoom(roomID)
	r.rooms[roomID].admins[connID] = struct{}{}
}

// RemoveAdmin drops the admin registration. Only disconnect calls this;
// there is no unsubscribe operation in the protocol.
func (r *Roster) RemoveAdmin(roomID domain.RoomID, connID domain.ConnID) {
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(room.admins, connID)
}

// Admins returns the room's admin connection ids, sorted for determinism.
func (r *Roster) Admins(roomID domain.RoomID) []domain.ConnID {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.ConnID, 0, len(room.admins))
	for id := range room.admins {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// StreamSnapshot recomputes the stream-enabled participant list from
// scratch: every participant with consent granted, most recently active
// first, ties broken by connection id. Never cached.
func (r *Roster) StreamSnapshot(roomID domain.RoomID) []StreamEntry {
	room, ok := r.rooms[roomID]
	if !ok {
		return []StreamEntry{}
	}
	type scanned struct {
		entry StreamEntry
		seen  time.Time
	}
	tmp := make([]scanned, 0, len(room.participants))
	for connID, p := range room.participants {
		if !p.StreamAllowed {
			continue
		}
		tmp = append(tmp, scanned{
			entry: StreamEntry{
				ConnID:      connID,
				UserID:      p.UserID,
				DisplayName: p.DisplayName,
				LastSeen:    p.LastSeen.UnixMilli(),
			},
			seen: p.LastSeen,
		})
	}
	slices.SortFunc(tmp, func(a, b scanned) int {
		if c := b.seen.Compare(a.seen); c != 0 {
			return c
		}
		return strings.Compare(string(a.entry.ConnID), string(b.entry.ConnID))
	})
	out := make([]StreamEntry, len(tmp))
	for i, s := range tmp {
		out[i] = s.entry
	}
	return out
}

// ParticipantCount reports the room's full participant count, consenting
// or not.
func (r *Roster) ParticipantCount(roomID domain.RoomID) int {
	room, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.participants)
}

// Stats summarizes every known room, sorted by room id.
func (r *Roster) Stats() []RoomStats {
	out := make([]RoomStats, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, RoomStats{
			RoomID:       id,
			Participants: len(room.participants),
			Admins:       len(room.admins),
		})
	}
	slices.SortFunc(out, func(a, b RoomStats) int {
		return strings.Compare(string(a.RoomID), string(b.RoomID))
	})
	return out
}
