package store

import (
	"context"

	"gorm.io/gorm/clause"
)

// AddAttendee inserts the (session, user) pair unless it already exists.
// It reports whether a new row was written.
func (s *Store) AddAttendee(ctx context.Context, row *Attendee) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, wrap(res.Error, "add attendee")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) Attendees(ctx context.Context, sessionID uint) ([]Attendee, error) {
	var rows []Attendee
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC, user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap(err, "list attendees")
	}
	return rows, nil
}
