// Package store persists sessions, chat rows and attendance with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dkeye/confer/internal/apperr"
)

type Store struct {
	db *gorm.DB
}

// Open connects with the named driver ("postgres" or "sqlite").
func Open(driver, dsn string, slow time.Duration) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newLogger(slow),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer; a single connection serializes writes
		// instead of surfacing "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info().Str("module", "store").Str("driver", driver).Msg("database opened")
	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Session{}, &Chat{}, &Attendee{}); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	log.Info().Str("module", "store").Msg("schema migrated")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// wrap maps driver errors into the taxonomy. Only here do storage errors
// become Internal.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.NotFound, err, op)
	}
	log.Error().Err(err).Str("module", "store").Str("op", op).Msg("storage failure")
	return apperr.Wrap(apperr.Internal, err, op)
}
