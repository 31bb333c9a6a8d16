package core

import (
	"testing"
	"time"

	"github.com/peersight/server/internal/domain"
)

// tick returns a clock that advances one second per call.
func tick() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func boolPtr(b bool) *bool { return &b }

func TestStreamSnapshotFiltersByConsent(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1", StreamAllowed: boolPtr(true)})
	r.UpsertParticipant(room, "c2", domain.ParticipantPatch{UserID: "u2"})
	r.UpsertParticipant(room, "c3", domain.ParticipantPatch{UserID: "u3", StreamAllowed: boolPtr(false)})
	r.AddAdmin(room, "a1")

	snap := r.StreamSnapshot(room)
	if len(snap) != 1 {
		t.Fatalf("expected 1 consenting participant, got %d", len(snap))
	}
	if snap[0].ConnID != "c1" || snap[0].UserID != "u1" {
		t.Fatalf("unexpected entry %+v", snap[0])
	}
}

func TestStreamSnapshotOrderedByLastSeenDesc(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.UpsertParticipant(room, "old", domain.ParticipantPatch{UserID: "u1", StreamAllowed: boolPtr(true)})
	r.UpsertParticipant(room, "fresh", domain.ParticipantPatch{UserID: "u2", StreamAllowed: boolPtr(true)})

	snap := r.StreamSnapshot(room)
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap[0].ConnID != "fresh" || snap[1].ConnID != "old" {
		t.Fatalf("expected most-recently-active first, got %v then %v", snap[0].ConnID, snap[1].ConnID)
	}

	// Touching the older one moves it to the front.
	r.UpsertParticipant(room, "old", domain.ParticipantPatch{})
	snap = r.StreamSnapshot(room)
	if snap[0].ConnID != "old" {
		t.Fatalf("expected refreshed participant first, got %v", snap[0].ConnID)
	}
}

func TestUpsertOverwritesInsteadOfDuplicating(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1"})
	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1-renamed"})

	if got := r.ParticipantCount(room); got != 1 {
		t.Fatalf("expected 1 participant after double join, got %d", got)
	}
}

func TestConsentLastWriteWins(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	for _, allow := range []bool{true, false, true} {
		r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1", StreamAllowed: boolPtr(allow)})
	}
	snap := r.StreamSnapshot(room)
	if len(snap) != 1 {
		t.Fatalf("expected consent to settle on true, got %d entries", len(snap))
	}
}

func TestLastSeenMonotonic(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1", StreamAllowed: boolPtr(true)})
	first := r.StreamSnapshot(room)[0].LastSeen

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{})
	second := r.StreamSnapshot(room)[0].LastSeen

	if second <= first {
		t.Fatalf("expected LastSeen to advance, got %d then %d", first, second)
	}
}

func TestDisplayNameDefaultsToUserID(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1", StreamAllowed: boolPtr(true)})
	if got := r.StreamSnapshot(room)[0].DisplayName; got != "u1" {
		t.Fatalf("expected displayName to default to userId, got %q", got)
	}

	r.UpsertParticipant(room, "c2", domain.ParticipantPatch{UserID: "u2", DisplayName: "Alice", StreamAllowed: boolPtr(true)})
	snap := r.StreamSnapshot(room)
	for _, e := range snap {
		if e.ConnID == "c2" && e.DisplayName != "Alice" {
			t.Fatalf("expected explicit displayName to win, got %q", e.DisplayName)
		}
	}
}

func TestRemoveParticipantIdempotent(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.RemoveParticipant(room, "ghost")
	r.RemoveParticipant("no-such-room", "ghost")

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1"})
	r.RemoveParticipant(room, "c1")
	r.RemoveParticipant(room, "c1")
	if got := r.ParticipantCount(room); got != 0 {
		t.Fatalf("expected empty room, got %d", got)
	}
}

func TestAdminAndParticipantSetsIndependent(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.UpsertParticipant(room, "c1", domain.ParticipantPatch{UserID: "u1", StreamAllowed: boolPtr(true)})
	r.AddAdmin(room, "c1")

	r.RemoveAdmin(room, "c1")
	if got := r.ParticipantCount(room); got != 1 {
		t.Fatalf("removing admin registration must not remove participant record")
	}

	r.AddAdmin(room, "c1")
	r.RemoveParticipant(room, "c1")
	admins := r.Admins(room)
	if len(admins) != 1 || admins[0] != "c1" {
		t.Fatalf("removing participant record must not remove admin registration, got %v", admins)
	}
}

func TestAdminsSortedAndIdempotent(t *testing.T) {
	r := NewRosterWithClock(tick())
	room := domain.RoomID("r1")

	r.AddAdmin(room, "b")
	r.AddAdmin(room, "a")
	r.AddAdmin(room, "a")

	admins := r.Admins(room)
	if len(admins) != 2 || admins[0] != "a" || admins[1] != "b" {
		t.Fatalf("unexpected admin set %v", admins)
	}
}

func TestStatsSummarizesRooms(t *testing.T) {
	r := NewRosterWithClock(tick())

	r.UpsertParticipant("r1", "c1", domain.ParticipantPatch{UserID: "u1"})
	r.AddAdmin("r1", "a1")
	r.EnsureRoom("r2")

	stats := r.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(stats))
	}
	if stats[0].RoomID != "r1" || stats[0].Participants != 1 || stats[0].Admins != 1 {
		t.Fatalf("unexpected stats %+v", stats[0])
	}
	if stats[1].RoomID != "r2" || stats[1].Participants != 0 {
		t.Fatalf("unexpected stats %+v", stats[1])
	}
}
