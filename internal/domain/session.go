package domain

import "time"

type SessionID uint

// ActiveDuration marks a session that has not ended yet.
const ActiveDuration int64 = -1

type Session struct {
	ID           SessionID
	CreatorID    UserID
	IsChat       bool
	PasswordHash string
	Salt         string
	DurationMs   int64
	CreatedAt    time.Time
}

func (s *Session) HasEnded() bool { return s.DurationMs != ActiveDuration }

// Summary is the owner-facing view of a finished or running session.
type Summary struct {
	SessionNumber   SessionID `json:"sessionNumber"`
	SessionDuration int64     `json:"sessionDuration"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (s *Session) Summary() Summary {
	return Summary{SessionNumber: s.ID, SessionDuration: s.DurationMs, CreatedAt: s.CreatedAt}
}
