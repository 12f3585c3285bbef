package store

import "time"

// Session row. DurationMs stays -1 while the session is live.
type Session struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	CreatorID    string    `gorm:"size:254;not null;index"`
	IsChat       bool      `gorm:"not null;default:false"`
	PasswordHash string    `gorm:"size:128;not null"`
	Salt         string    `gorm:"size:64;not null"`
	DurationMs   int64     `gorm:"not null;default:-1"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "sessions" }

// Chat row. ReceiverID is NULL for broadcasts. Ciphertext, InitVector and
// AuthTag are hex; a row with InitVector set is never rewritten.
type Chat struct {
	ID         uint    `gorm:"primaryKey;autoIncrement"`
	SessionID  uint    `gorm:"not null;index:idx_chats_session_sent,priority:1"`
	SenderID   string  `gorm:"size:254;not null"`
	ReceiverID *string `gorm:"size:254"`
	SentAt     int64   `gorm:"not null;index:idx_chats_session_sent,priority:2"`
	Ciphertext string  `gorm:"type:text;not null"`
	InitVector *string `gorm:"size:64"`
	AuthTag    *string `gorm:"size:64"`
}

func (Chat) TableName() string { return "chats" }

// Attendee row, keyed by (session, user).
type Attendee struct {
	SessionID uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID    string    `gorm:"primaryKey;size:254"`
	JoinedAt  time.Time `gorm:"not null"`
}

func (Attendee) TableName() string { return "session_attendees" }
