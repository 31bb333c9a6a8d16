package domain

import (
	"strings"
	"testing"
)

func TestPatchApply(t *testing.T) {
	allow := true
	deny := false

	for name, tc := range map[string]struct {
		start Participant
		patch ParticipantPatch
		want  Participant
	}{
		"fresh record defaults displayName to userId": {
			patch: ParticipantPatch{UserID: "u1"},
			want:  Participant{UserID: "u1", DisplayName: "u1"},
		},
		"explicit displayName wins": {
			patch: ParticipantPatch{UserID: "u1", DisplayName: "Alice"},
			want:  Participant{UserID: "u1", DisplayName: "Alice"},
		},
		"empty patch changes nothing": {
			start: Participant{UserID: "u1", DisplayName: "Alice", StreamAllowed: true},
			patch: ParticipantPatch{},
			want:  Participant{UserID: "u1", DisplayName: "Alice", StreamAllowed: true},
		},
		"userId rewrite keeps existing displayName": {
			start: Participant{UserID: "u1", DisplayName: "Alice"},
			patch: ParticipantPatch{UserID: "u2"},
			want:  Participant{UserID: "u2", DisplayName: "Alice"},
		},
		"consent granted": {
			start: Participant{UserID: "u1", DisplayName: "u1"},
			patch: ParticipantPatch{StreamAllowed: &allow},
			want:  Participant{UserID: "u1", DisplayName: "u1", StreamAllowed: true},
		},
		"consent revoked": {
			start: Participant{UserID: "u1", DisplayName: "u1", StreamAllowed: true},
			patch: ParticipantPatch{StreamAllowed: &deny},
			want:  Participant{UserID: "u1", DisplayName: "u1"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			p := tc.start
			tc.patch.Apply(&p)
			if p != tc.want {
				t.Fatalf("got %+v, want %+v", p, tc.want)
			}
		})
	}
}

func TestPatchTruncatesLongDisplayName(t *testing.T) {
	var p Participant
	ParticipantPatch{UserID: "u1", DisplayName: strings.Repeat("x", 200)}.Apply(&p)
	if len(p.DisplayName) != MaxDisplayNameLen {
		t.Fatalf("displayName length = %d, want %d", len(p.DisplayName), MaxDisplayNameLen)
	}
}
