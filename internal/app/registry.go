package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/confer/internal/apperr"
	"github.com/dkeye/confer/internal/core"
)

// Entry is one live room. Its lock serializes every operation on the
// room; the registry lock is never held while an entry lock is taken.
type Entry struct {
	mu     sync.Mutex
	token  string
	room   *core.RoomState
	closed bool
}

func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

func (e *Entry) Token() string { return e.token }

// Room must only be used while holding the entry lock.
func (e *Entry) Room() *core.RoomState { return e.room }

// Closed reports whether the entry was torn down. Hold the lock.
func (e *Entry) Closed() bool { return e.closed }

// MarkClosed makes the entry terminal. Hold the lock.
func (e *Entry) MarkClosed() { e.closed = true }

// Registry maps session tokens to live rooms. Construct one per process
// with NewRegistry; Close hands every remaining room back for teardown.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Entry
	closed bool
}

func NewRegistry() *Registry {
	log.Info().Str("module", "app.registry").Msg("registry opened")
	return &Registry{rooms: make(map[string]*Entry)}
}

// Add registers room under token. It fails with AlreadyExists if the
// token is taken and Gone once the registry is closed.
func (r *Registry) Add(token string, room *core.RoomState) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, apperr.Gonef("registry closed")
	}
	if _, ok := r.rooms[token]; ok {
		return nil, apperr.New(apperr.AlreadyExists, "room already registered")
	}
	e := &Entry{token: token, room: room}
	r.rooms[token] = e
	log.Info().Str("module", "app.registry").Str("room", string(room.RoomID())).Int("rooms", len(r.rooms)).Msg("room registered")
	return e, nil
}

// LoadOrAdd returns the entry under token, registering the room built
// by mk if there is none. mk runs at most once and only on a miss.
func (r *Registry) LoadOrAdd(token string, mk func() *core.RoomState) (*Entry, bool, error) {
	if e, ok := r.Get(token); ok {
		return e, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, false, apperr.Gonef("registry closed")
	}
	if e, ok := r.rooms[token]; ok {
		return e, false, nil
	}
	e := &Entry{token: token, room: mk()}
	r.rooms[token] = e
	log.Info().Str("module", "app.registry").Str("room", string(e.room.RoomID())).Int("rooms", len(r.rooms)).Msg("room established")
	return e, true, nil
}

func (r *Registry) Get(token string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[token]
	return e, ok
}

// CompareAndDelete removes token only while it still maps to e. Exactly
// one caller observes true for a given entry.
func (r *Registry) CompareAndDelete(token string, e *Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[token]; !ok || cur != e {
		return false
	}
	delete(r.rooms, token)
	log.Info().Str("module", "app.registry").Str("room", string(e.room.RoomID())).Int("rooms", len(r.rooms)).Msg("room removed")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close stops accepting rooms and returns the ones still registered.
// Entries are left untouched; the caller tears them down.
func (r *Registry) Close() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	out := make([]*Entry, 0, len(r.rooms))
	for _, e := range r.rooms {
		out = append(out, e)
	}
	r.rooms = make(map[string]*Entry)
	log.Info().Str("module", "app.registry").Int("rooms", len(out)).Msg("registry closed")
	return out
}
