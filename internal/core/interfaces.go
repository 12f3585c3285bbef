package core

import (
	"fmt"

	"github.com/dkeye/confer/internal/domain"
)

// Frame is one encoded push event.
type Frame []byte

// ConnID identifies one transport connection. A member who reconnects
// gets a new ConnID; stale disconnects carry the old one.
type ConnID string

// SignalConnection abstracts the messaging transport of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Address names a member's private channel: session plus identity.
type Address struct {
	Room domain.RoomID
	UID  domain.UserID
}

func (a Address) String() string { return fmt.Sprintf("%s/%s", a.Room, a.UID) }

// PublishResult reports delivery stats/backpressure to the orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []Mailbox
}
