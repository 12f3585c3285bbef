// Package orch is the room coordinator: every operation on a live
// session runs here, serialized per room.
package orch

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/app"
	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/core"
	"github.com/dkeye/confer/internal/domain"
)

// Sessions is the session lifecycle service.
type Sessions interface {
	Create(ctx context.Context, creator domain.UserID, raw string, isChat bool) (string, *domain.Session, error)
	Verify(ctx context.Context, token string) (*domain.Session, error)
	CheckPassword(sess *domain.Session, raw string) error
	End(ctx context.Context, sess *domain.Session) error
}

// Archive persists chat messages.
type Archive interface {
	Append(ctx context.Context, sid domain.SessionID, sender, receiver domain.UserID, text string) (*domain.ChatMessage, error)
}

// Attendance records who attended a session.
type Attendance interface {
	Record(ctx context.Context, sid domain.SessionID, uid domain.UserID) error
}

type Orchestrator struct {
	Registry   *app.Registry
	Sessions   Sessions
	Archive    Archive
	Attendance Attendance
	Policy     app.Policy
}

// Client is the caller's identity plus the transport it is reachable on.
type Client struct {
	UID    domain.UserID
	Conn   core.ConnID
	Signal core.SignalConnection
}

// withRoom runs fn under the room's lock. A missing or torn down room is
// NotFound.
func (o *Orchestrator) withRoom(token string, fn func(e *app.Entry, room *core.RoomState) error) error {
	e, ok := o.Registry.Get(token)
	if !ok {
		return apperr.NotFoundf("no live session for token")
	}
	e.Lock()
	defer e.Unlock()
	if e.Closed() {
		return apperr.NotFoundf("no live session for token")
	}
	return fn(e, e.Room())
}

func (o *Orchestrator) broadcast(room *core.RoomState, ev any) {
	o.apply(room, room.Broadcast(encode(ev)))
}

func (o *Orchestrator) deliver(room *core.RoomState, ev any, to ...domain.UserID) {
	o.apply(room, room.Deliver(encode(ev), to...))
}

// apply runs the backpressure policy over members that missed a frame.
func (o *Orchestrator) apply(room *core.RoomState, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("addr", slow.Addr.String()).Msg("kicking slow member")
			slow.Close()
		case app.NoAction:
		}
	}
}

func encode(ev any) core.Frame {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode event")
		return nil
	}
	return b
}
