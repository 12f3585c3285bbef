package store

import (
	"context"
)

func (s *Store) InsertChat(ctx context.Context, row *Chat) error {
	return wrap(s.db.WithContext(ctx).Create(row).Error, "insert chat")
}

// ChatsForReader returns every broadcast row of the session plus the
// directed rows the reader sent or received, oldest first.
func (s *Store) ChatsForReader(ctx context.Context, sessionID uint, reader string) ([]Chat, error) {
	var rows []Chat
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Where(s.db.Where("receiver_id IS NULL").Or("receiver_id = ?", reader).Or("sender_id = ?", reader)).
		Order("sent_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(err, "list chats")
	}
	return rows, nil
}

// SealChat stores the encrypted form of a row that still holds plaintext.
// Rows that already carry an init vector are left untouched; the result
// reports whether this call wrote the row.
func (s *Store) SealChat(ctx context.Context, id uint, ciphertext, iv, tag string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&Chat{}).
		Where("id = ? AND init_vector IS NULL", id).
		Updates(map[string]any{
			"ciphertext":  ciphertext,
			"init_vector": iv,
			"auth_tag":    tag,
		})
	if res.Error != nil {
		return false, wrap(res.Error, "seal chat")
	}
	return res.RowsAffected == 1, nil
}
