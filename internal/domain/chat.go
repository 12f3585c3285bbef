package domain

import "time"

type MessageID uint

// ChatMessage is a decrypted chat line. Receiver is empty for broadcasts.
type ChatMessage struct {
	ID        MessageID `json:"-"`
	SessionID SessionID `json:"-"`
	Sender    UserID    `json:"sender"`
	Receiver  UserID    `json:"receiver,omitempty"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"-"`
	UnixMilli int64     `json:"chat_timestamp"`
}

func (m *ChatMessage) Directed() bool { return m.Receiver != "" }

// Attendee is one audit line: who attended which session, first seen when.
type Attendee struct {
	SessionID SessionID `json:"sessionId"`
	UserID    UserID    `json:"uid"`
	JoinedAt  time.Time `json:"joinedAt"`
}
