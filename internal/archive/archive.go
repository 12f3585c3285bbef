// Package archive stores chat messages sealed at rest and reads them back
// scoped to one reader.
package archive

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/domain"
	"github.com/dkeye/confer/internal/sealer"
	"github.com/dkeye/confer/internal/store"
)

// Store is the chat table. *store.Store implements it.
type Store interface {
	InsertChat(ctx context.Context, row *store.Chat) error
	ChatsForReader(ctx context.Context, sessionID uint, reader string) ([]store.Chat, error)
	SealChat(ctx context.Context, id uint, ciphertext, iv, tag string) (bool, error)
}

type Archive struct {
	store  Store
	sealer *sealer.Sealer
	// migratePlaintext seals rows found without an init vector on read.
	// When false such a row is a data-integrity error.
	migratePlaintext bool
	now              func() time.Time
}

func New(st Store, s *sealer.Sealer, migratePlaintext bool) *Archive {
	return &Archive{store: st, sealer: s, migratePlaintext: migratePlaintext, now: time.Now}
}

// Append seals text and persists it. An empty receiver is a broadcast.
func (a *Archive) Append(ctx context.Context, sid domain.SessionID, sender, receiver domain.UserID, text string) (*domain.ChatMessage, error) {
	if text == "" {
		return nil, apperr.BadInputf("message text is required")
	}
	at := a.now().UTC()
	row := &store.Chat{
		SessionID: uint(sid),
		SenderID:  string(sender),
		SentAt:    at.UnixMilli(),
	}
	if receiver != "" {
		r := string(receiver)
		row.ReceiverID = &r
	}
	if err := a.seal(row, text); err != nil {
		return nil, err
	}
	if err := a.store.InsertChat(ctx, row); err != nil {
		return nil, err
	}
	msg := toMessage(row, text)
	return &msg, nil
}

// ForReader returns every broadcast of the session plus the directed
// messages reader sent or received, oldest first.
func (a *Archive) ForReader(ctx context.Context, sid domain.SessionID, reader domain.UserID) ([]domain.ChatMessage, error) {
	rows, err := a.store.ChatsForReader(ctx, uint(sid), string(reader))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatMessage, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		var text string
		if row.InitVector == nil {
			text, err = a.migrate(ctx, row)
		} else {
			text, err = a.open(row)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, toMessage(row, text))
	}
	return out, nil
}

func (a *Archive) seal(row *store.Chat, text string) error {
	sealed, err := a.sealer.Seal([]byte(text), additional(row))
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "seal chat")
	}
	iv, tag := hex.EncodeToString(sealed.Nonce), hex.EncodeToString(sealed.Tag)
	row.Ciphertext = hex.EncodeToString(sealed.Ciphertext)
	row.InitVector, row.AuthTag = &iv, &tag
	return nil
}

func (a *Archive) open(row *store.Chat) (string, error) {
	if row.AuthTag == nil {
		return "", apperr.Newf(apperr.Internal, "chat %d has an init vector but no tag", row.ID)
	}
	ct, err1 := hex.DecodeString(row.Ciphertext)
	iv, err2 := hex.DecodeString(*row.InitVector)
	tag, err3 := hex.DecodeString(*row.AuthTag)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", apperr.Newf(apperr.Internal, "chat %d is not valid hex", row.ID)
	}
	plain, err := a.sealer.Open(sealer.Sealed{Ciphertext: ct, Nonce: iv, Tag: tag}, additional(row))
	if err != nil {
		log.Error().Str("module", "archive").Uint("chat", row.ID).Err(err).Msg("chat failed authentication")
		return "", apperr.Wrap(apperr.Internal, err, fmt.Sprintf("open chat %d", row.ID))
	}
	return string(plain), nil
}

// migrate handles a row still holding plaintext in its ciphertext column.
func (a *Archive) migrate(ctx context.Context, row *store.Chat) (string, error) {
	if !a.migratePlaintext {
		log.Error().Str("module", "archive").Uint("chat", row.ID).Msg("unsealed chat row")
		return "", apperr.Newf(apperr.Internal, "chat %d is stored unsealed", row.ID)
	}
	text := row.Ciphertext
	sealedRow := *row
	if err := a.seal(&sealedRow, text); err != nil {
		return "", err
	}
	wrote, err := a.store.SealChat(ctx, row.ID, sealedRow.Ciphertext, *sealedRow.InitVector, *sealedRow.AuthTag)
	if err != nil {
		return "", err
	}
	log.Warn().Str("module", "archive").Uint("chat", row.ID).Bool("wrote", wrote).Msg("sealed plaintext chat row on read")
	return text, nil
}

// additional binds a ciphertext to the row it was written for.
func additional(row *store.Chat) []byte {
	receiver := ""
	if row.ReceiverID != nil {
		receiver = *row.ReceiverID
	}
	return fmt.Appendf(nil, "%d|%s|%s|%d", row.SessionID, row.SenderID, receiver, row.SentAt)
}

func toMessage(row *store.Chat, text string) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        domain.MessageID(row.ID),
		SessionID: domain.SessionID(row.SessionID),
		Sender:    domain.UserID(row.SenderID),
		Text:      text,
		Timestamp: time.UnixMilli(row.SentAt).UTC(),
		UnixMilli: row.SentAt,
	}
	if row.ReceiverID != nil {
		msg.Receiver = domain.UserID(*row.ReceiverID)
	}
	return msg
}
