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

// Direction of a signal relay.
type Direction int

const (
	// Offer goes from a caller to a peer that must already be connected.
	Offer Direction = iota
	// Answer returns to the original caller, who must still be connected.
	Answer
)

func (d Direction) event() string {
	if d == Answer {
		return EventReturnSignal
	}
	return EventSendSignal
}

type Signal struct {
	Direction Direction
	Sender    domain.UserID
	Target    domain.UserID
	Payload   json.RawMessage
	Audio     *bool
	Video     *bool
}

// Relay forwards an opaque signaling payload to the target's mailbox.
// Relaying to oneself succeeds without emitting anything.
func (o *Orchestrator) Relay(_ context.Context, token string, s Signal) error {
	if s.Sender == "" || s.Target == "" || len(s.Payload) == 0 {
		return apperr.BadInputf("sender, target and signal are required")
	}
	if s.Sender == s.Target {
		return nil
	}
	return o.withRoom(token, func(_ *app.Entry, room *core.RoomState) error {
		first, second := s.Target, s.Sender
		if s.Direction == Answer {
			first, second = s.Sender, s.Target
		}
		if !room.Has(first) {
			return apperr.NotFoundf("%s is not in session", first)
		}
		if !room.Has(second) {
			return apperr.NotFoundf("%s is not in session", second)
		}
		o.deliver(room, signalEvent{
			Type:   s.Direction.event(),
			Signal: s.Payload,
			Sender: s.Sender,
			Target: s.Target,
			Audio:  s.Audio,
			Video:  s.Video,
		}, s.Target)
		log.Debug().Str("module", "orch").Str("room", string(room.RoomID())).Str("event", s.Direction.event()).Str("from", string(s.Sender)).Str("to", string(s.Target)).Msg("signal relayed")
		return nil
	})
}

// Ready tells the room that uid accepts peer connections.
func (o *Orchestrator) Ready(_ context.Context, token string, uid domain.UserID) error {
	return o.withRoom(token, func(_ *app.Entry, room *core.RoomState) error {
		if !room.Has(uid) {
			return apperr.Unauthorizedf("not in session")
		}
		o.broadcast(room, readyEvent{Type: EventReady, UID: uid})
		return nil
	})
}

// UpdatePreference replaces uid's media status and shares it.
func (o *Orchestrator) UpdatePreference(_ context.Context, token string, uid domain.UserID, media domain.MediaStatus) error {
	return o.withRoom(token, func(_ *app.Entry, room *core.RoomState) error {
		if !room.SetMedia(uid, media) {
			return apperr.NotFoundf("user is not in session")
		}
		o.broadcast(room, preferenceEvent{Type: EventPreference, UID: uid, Value: media})
		return nil
	})
}

// SendMessage archives text and pushes it to the room, or only to sender
// and receiver when receiver is set.
func (o *Orchestrator) SendMessage(ctx context.Context, token string, sender, receiver domain.UserID, text string) error {
	return o.withRoom(token, func(_ *app.Entry, room *core.RoomState) error {
		if !room.Has(sender) {
			return apperr.BadInputf("sender is not in session")
		}
		if receiver != "" && !room.Has(receiver) {
			return apperr.BadInputf("receiver is not in session")
		}
		msg, err := o.Archive.Append(ctx, room.SessionID(), sender, receiver, text)
		if err != nil {
			return err
		}
		ev := messageEvent{
			Type:      EventMessage,
			Message:   msg.Text,
			Sender:    msg.Sender,
			Receiver:  msg.Receiver,
			Directed:  msg.Directed(),
			Timestamp: msg.UnixMilli,
		}
		if msg.Directed() {
			o.deliver(room, ev, sender, receiver)
		} else {
			o.broadcast(room, ev)
		}
		return nil
	})
}
