package store

import (
	"context"
	"fmt"
)

// OpenMemory opens a private in-memory SQLite database and migrates it.
// name must be unique per database the caller wants isolated.
func OpenMemory(ctx context.Context, name string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	s, err := Open("sqlite", dsn, 0)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
