package core

import "github.com/dkeye/confer/internal/domain"

// Mailbox is the private channel of one member. Directed traffic goes
// only through mailboxes, never through the shared room channel.
type Mailbox struct {
	Addr   Address
	Conn   ConnID
	signal SignalConnection
}

func (m Mailbox) Send(f Frame) error { return m.signal.TrySend(f) }

// Close shuts the member's transport; the adapter's disconnect path
// does the rest.
func (m Mailbox) Close() { m.signal.Close() }

type slot struct {
	mailbox Mailbox
	media   domain.MediaStatus
}
