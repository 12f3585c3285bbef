package domain

import (
	"strings"
	"testing"
)

func TestPeerIDIsHexOfIdentity(t *testing.T) {
	if got := UserID("ab").PeerID(); got != "6162" {
		t.Fatalf("PeerID = %q, want 6162", got)
	}
}

func TestUserIDValidate(t *testing.T) {
	if err := UserID("").Validate(); err != ErrUserIDEmpty {
		t.Fatalf("empty: %v", err)
	}
	if err := UserID(strings.Repeat("x", MaxUserIDLen+1)).Validate(); err != ErrUserIDTooLong {
		t.Fatalf("long: %v", err)
	}
	if err := UserID("alice@example.com").Validate(); err != nil {
		t.Fatalf("valid: %v", err)
	}
}

func TestSessionHasEnded(t *testing.T) {
	s := Session{DurationMs: ActiveDuration}
	if s.HasEnded() {
		t.Fatal("active session reported ended")
	}
	s.DurationMs = 0
	if !s.HasEnded() {
		t.Fatal("zero duration is a recorded end")
	}
}

func TestRoomIDFor(t *testing.T) {
	if RoomIDFor(1042) != "1042" {
		t.Fatal("room id must be decimal session id")
	}
}
