package core

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/domain"
)

// RoomState is the live membership of one session. It is not safe for
// concurrent use; the owner serializes access.
// It never closes adapter-owned resources except through Mailbox.Close.
type RoomState struct {
	session *domain.Session
	roomID  domain.RoomID
	members map[domain.UserID]*slot
	order   []domain.UserID
}

func NewRoomState(sess *domain.Session) *RoomState {
	return &RoomState{
		session: sess,
		roomID:  domain.RoomIDFor(sess.ID),
		members: make(map[domain.UserID]*slot),
	}
}

func (r *RoomState) Session() *domain.Session    { return r.session }
func (r *RoomState) SessionID() domain.SessionID { return r.session.ID }
func (r *RoomState) RoomID() domain.RoomID       { return r.roomID }
func (r *RoomState) CreatorID() domain.UserID    { return r.session.CreatorID }
func (r *RoomState) IsChat() bool                { return r.session.IsChat }
func (r *RoomState) Len() int                    { return len(r.members) }

func (r *RoomState) Has(uid domain.UserID) bool {
	_, ok := r.members[uid]
	return ok
}

// Add admits uid over conn. A member already present keeps its place in
// the roster and switches to the new connection; the result reports that.
func (r *RoomState) Add(uid domain.UserID, conn ConnID, sc SignalConnection, media domain.MediaStatus) (rejoined bool) {
	mb := Mailbox{Addr: Address{Room: r.roomID, UID: uid}, Conn: conn, signal: sc}
	if s, ok := r.members[uid]; ok {
		s.mailbox = mb
		s.media = media
		log.Info().Str("module", "core.room").Str("room", string(r.roomID)).Str("uid", string(uid)).Msg("member reconnected")
		return true
	}
	r.members[uid] = &slot{mailbox: mb, media: media}
	r.order = append(r.order, uid)
	log.Info().Str("module", "core.room").Str("room", string(r.roomID)).Str("uid", string(uid)).Msg("member added")
	return false
}

// Remove drops uid. A non-empty conn must match the member's current
// connection, so a stale disconnect cannot evict a newer one.
func (r *RoomState) Remove(uid domain.UserID, conn ConnID) bool {
	s, ok := r.members[uid]
	if !ok || (conn != "" && s.mailbox.Conn != conn) {
		return false
	}
	delete(r.members, uid)
	for i, u := range r.order {
		if u == uid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "core.room").Str("room", string(r.roomID)).Str("uid", string(uid)).Msg("member removed")
	return true
}

// Owns reports whether conn is uid's current connection.
func (r *RoomState) Owns(uid domain.UserID, conn ConnID) bool {
	s, ok := r.members[uid]
	return ok && (conn == "" || s.mailbox.Conn == conn)
}

func (r *RoomState) SetMedia(uid domain.UserID, media domain.MediaStatus) bool {
	s, ok := r.members[uid]
	if !ok {
		return false
	}
	s.media = media
	return true
}

func (r *RoomState) Media(uid domain.UserID) (domain.MediaStatus, bool) {
	s, ok := r.members[uid]
	if !ok {
		return domain.MediaStatus{}, false
	}
	return s.media, true
}

func (r *RoomState) Mailbox(uid domain.UserID) (Mailbox, bool) {
	s, ok := r.members[uid]
	if !ok {
		return Mailbox{}, false
	}
	return s.mailbox, true
}

// Roster lists members in join order.
func (r *RoomState) Roster() []domain.Member {
	out := make([]domain.Member, 0, len(r.order))
	for _, uid := range r.order {
		out = append(out, domain.NewMember(uid, r.members[uid].media))
	}
	return out
}

// Broadcast sends f to every member, the originator included.
func (r *RoomState) Broadcast(f Frame) PublishResult {
	res := PublishResult{}
	for _, uid := range r.order {
		r.send(r.members[uid].mailbox, f, &res)
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.roomID)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Deliver sends f to the private mailboxes of the given members only.
// Unknown members are skipped; a member named twice receives f once.
func (r *RoomState) Deliver(f Frame, to ...domain.UserID) PublishResult {
	res := PublishResult{}
	seen := make(map[domain.UserID]struct{}, len(to))
	for _, uid := range to {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		s, ok := r.members[uid]
		if !ok {
			continue
		}
		r.send(s.mailbox, f, &res)
	}
	return res
}

// Drain removes every member and returns their mailboxes.
func (r *RoomState) Drain() []Mailbox {
	out := make([]Mailbox, 0, len(r.order))
	for _, uid := range r.order {
		out = append(out, r.members[uid].mailbox)
	}
	r.members = make(map[domain.UserID]*slot)
	r.order = nil
	return out
}

func (r *RoomState) send(mb Mailbox, f Frame, res *PublishResult) {
	if err := mb.Send(f); err != nil {
		res.Dropped = append(res.Dropped, mb)
		return
	}
	res.SendTo++
}
