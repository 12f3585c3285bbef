package app

import "github.com/dkeye/confer/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackPressure(room *core.RoomState, member core.Mailbox) BackpressureAction
}

// IgnorePolicy drops the frame for that member and moves on.
type IgnorePolicy struct{}

func (IgnorePolicy) OnBackPressure(*core.RoomState, core.Mailbox) BackpressureAction {
	return NoAction
}

// KickPolicy closes a slow member's connection; its disconnect then
// leaves the room.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(*core.RoomState, core.Mailbox) BackpressureAction {
	return KickMember
}

// PolicyFor maps the signal.backpressure setting to a Policy.
func PolicyFor(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return IgnorePolicy{}
}
