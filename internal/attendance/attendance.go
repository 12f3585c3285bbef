// Package attendance is the append-only record of who attended a session.
package attendance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/domain"
	"github.com/dkeye/confer/internal/store"
)

// Store is the attendee table. *store.Store implements it.
type Store interface {
	AddAttendee(ctx context.Context, row *store.Attendee) (bool, error)
	Attendees(ctx context.Context, sessionID uint) ([]store.Attendee, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func New(st Store) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// Record notes that uid attended sid. Repeat calls keep the first entry.
func (l *Ledger) Record(ctx context.Context, sid domain.SessionID, uid domain.UserID) error {
	added, err := l.store.AddAttendee(ctx, &store.Attendee{
		SessionID: uint(sid),
		UserID:    string(uid),
		JoinedAt:  l.now().UTC(),
	})
	if err != nil {
		return err
	}
	if added {
		log.Debug().Str("module", "attendance").Uint("sid", uint(sid)).Str("uid", string(uid)).Msg("attendee recorded")
	}
	return nil
}

func (l *Ledger) List(ctx context.Context, sid domain.SessionID) ([]domain.Attendee, error) {
	rows, err := l.store.Attendees(ctx, uint(sid))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Attendee, len(rows))
	for i, r := range rows {
		out[i] = domain.Attendee{SessionID: domain.SessionID(r.SessionID), UserID: domain.UserID(r.UserID), JoinedAt: r.JoinedAt}
	}
	return out, nil
}
