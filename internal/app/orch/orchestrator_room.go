package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/app"
	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/core"
	"github.com/dkeye/confer/internal/domain"
)

type CreateResult struct {
	SessionToken string           `json:"sessionToken"`
	SessionID    domain.SessionID `json:"sessionId"`
}

type JoinRequest struct {
	SessionToken string
	Password     string
	Audio        bool
	Video        bool
}

type JoinResult struct {
	Users   []domain.Member `json:"users"`
	IsChat  bool            `json:"isChat"`
	Creator domain.UserID   `json:"creator"`
}

// Create opens a session owned by c and admits c as its first member.
// The room is registered only once the creator is in.
func (o *Orchestrator) Create(ctx context.Context, c Client, raw string, isChat bool) (*CreateResult, error) {
	token, sess, err := o.Sessions.Create(ctx, c.UID, raw, isChat)
	if err != nil {
		return nil, err
	}

	room := core.NewRoomState(sess)
	if err := o.Attendance.Record(ctx, sess.ID, c.UID); err != nil {
		o.abandon(ctx, sess, err)
		return nil, err
	}
	room.Add(c.UID, c.Conn, c.Signal, domain.MediaStatus{})

	e, err := o.Registry.Add(token, room)
	if err != nil {
		o.abandon(ctx, sess, err)
		return nil, err
	}

	e.Lock()
	o.broadcast(room, o.joined(room, c.UID))
	e.Unlock()

	log.Info().Str("module", "orch").Str("room", string(room.RoomID())).Str("uid", string(c.UID)).Msg("session started")
	return &CreateResult{SessionToken: token, SessionID: sess.ID}, nil
}

// abandon ends a session whose room never became active.
func (o *Orchestrator) abandon(ctx context.Context, sess *domain.Session, cause error) {
	log.Error().Err(cause).Str("module", "orch").Uint("sid", uint(sess.ID)).Msg("session failed to start")
	if err := o.Sessions.End(ctx, sess); err != nil {
		log.Error().Err(err).Str("module", "orch").Uint("sid", uint(sess.ID)).Msg("end abandoned session")
	}
}

// Join admits c to the session named by req.SessionToken, establishing
// the room if the session is live but has none yet.
func (o *Orchestrator) Join(ctx context.Context, c Client, req JoinRequest) (*JoinResult, error) {
	sess, err := o.Sessions.Verify(ctx, req.SessionToken)
	if err != nil {
		return nil, err
	}
	if sess.HasEnded() {
		return nil, apperr.Gonef("session has ended")
	}
	if err := o.Sessions.CheckPassword(sess, req.Password); err != nil {
		return nil, err
	}

	e, _, err := o.Registry.LoadOrAdd(req.SessionToken, func() *core.RoomState {
		return core.NewRoomState(sess)
	})
	if err != nil {
		return nil, err
	}

	e.Lock()
	defer e.Unlock()
	if e.Closed() {
		return nil, apperr.Gonef("session has ended")
	}
	room := e.Room()
	if room.SessionID() != sess.ID {
		return nil, apperr.Unauthorizedf("session token does not match room")
	}
	// An empty room was just built from a ledger read taken before the
	// lock; the session may have ended in between.
	if room.Len() == 0 {
		fresh, err := o.Sessions.Verify(ctx, req.SessionToken)
		if err != nil {
			o.discard(e)
			return nil, err
		}
		if fresh.HasEnded() {
			o.discard(e)
			return nil, apperr.Gonef("session has ended")
		}
	}

	if err := o.Attendance.Record(ctx, sess.ID, c.UID); err != nil {
		if room.Len() == 0 {
			o.discard(e)
		}
		return nil, err
	}
	room.Add(c.UID, c.Conn, c.Signal, domain.MediaStatus{Audio: req.Audio, Video: req.Video})
	o.broadcast(room, o.joined(room, c.UID))

	log.Info().Str("module", "orch").Str("room", string(room.RoomID())).Str("uid", string(c.UID)).Int("members", room.Len()).Msg("member joined")
	return &JoinResult{Users: room.Roster(), IsChat: room.IsChat(), Creator: room.CreatorID()}, nil
}

// discard drops a registered room that never got a member. Hold the lock.
func (o *Orchestrator) discard(e *app.Entry) {
	e.MarkClosed()
	o.Registry.CompareAndDelete(e.Token(), e)
}

func (o *Orchestrator) joined(room *core.RoomState, uid domain.UserID) joinedEvent {
	media, _ := room.Media(uid)
	return joinedEvent{
		Type:        EventJoined,
		UID:         uid,
		PeerID:      uid.PeerID(),
		Preferences: media,
		Users:       room.Roster(),
		Creator:     room.CreatorID(),
		IsChat:      room.IsChat(),
	}
}

// Leave removes uid from the room. conn, when set, must be uid's current
// connection. The last member leaving ends the session.
func (o *Orchestrator) Leave(ctx context.Context, token string, uid domain.UserID, conn core.ConnID) error {
	return o.withRoom(token, func(e *app.Entry, room *core.RoomState) error {
		if !room.Owns(uid, conn) {
			return apperr.NotFoundf("user is not in session")
		}
		if room.Len() == 1 {
			o.end(ctx, e, room, "last member left")
			return nil
		}
		room.Remove(uid, conn)
		o.broadcast(room, leftEvent{Type: EventLeft, UID: uid})
		log.Info().Str("module", "orch").Str("room", string(room.RoomID())).Str("uid", string(uid)).Int("members", room.Len()).Msg("member left")
		return nil
	})
}

// Terminate ends the session for everyone. Only the first caller wins;
// later ones see NotFound. The creator check belongs to the caller.
func (o *Orchestrator) Terminate(ctx context.Context, token string) error {
	return o.withRoom(token, func(e *app.Entry, room *core.RoomState) error {
		o.end(ctx, e, room, "terminated")
		return nil
	})
}

// end records the session's duration and tears the room down. Hold the
// lock. The room goes away even when the duration cannot be written.
func (o *Orchestrator) end(ctx context.Context, e *app.Entry, room *core.RoomState, reason string) {
	if err := o.Sessions.End(ctx, room.Session()); err != nil && !apperr.Is(err, apperr.Gone) {
		log.Error().Err(err).Str("module", "orch").Str("room", string(room.RoomID())).Msg("session duration not recorded")
	}
	e.MarkClosed()
	o.Registry.CompareAndDelete(e.Token(), e)
	room.Broadcast(encode(terminatedEvent{Type: EventTerminated}))
	room.Drain()
	log.Info().Str("module", "orch").Str("room", string(room.RoomID())).Str("reason", reason).Msg("session ended")
}

// Shutdown ends every live session. The registry accepts no new rooms
// afterwards.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	for _, e := range o.Registry.Close() {
		e.Lock()
		if !e.Closed() {
			o.end(ctx, e, e.Room(), "shutdown")
		}
		e.Unlock()
	}
}
