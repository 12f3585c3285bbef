package store

import (
	"context"

	"github.com/dkeye/confer/internal/apperr"
)

func (s *Store) CreateSession(ctx context.Context, row *Session) error {
	return wrap(s.db.WithContext(ctx).Create(row).Error, "create session")
}

func (s *Store) GetSession(ctx context.Context, id uint) (*Session, error) {
	var row Session
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, wrap(err, "get session")
	}
	return &row, nil
}

// EndSession records the duration of a live session. The update is
// conditional on the -1 sentinel, so a duration is written at most once.
// It reports Gone when the session had already ended.
func (s *Store) EndSession(ctx context.Context, id uint, durationMs int64) error {
	res := s.db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ? AND duration_ms = ?", id, -1).
		Update("duration_ms", durationMs)
	if res.Error != nil {
		return wrap(res.Error, "end session")
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetSession(ctx, id); err != nil {
			return err
		}
		return apperr.Gonef("session %d has already ended", id)
	}
	return nil
}

func (s *Store) SessionIDsByCreator(ctx context.Context, creator string) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&Session{}).
		Where("creator_id = ?", creator).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap(err, "list sessions")
	}
	return ids, nil
}
