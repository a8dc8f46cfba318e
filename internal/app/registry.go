package app

import (
	"context"
	"sync"

	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// connEntry is guarded by its own mutex. Join, leave and release for one
// connection go through it, which keeps entry.rooms and the room member sets
// in agreement.
type connEntry struct {
	mu      sync.Mutex
	conn    core.SignalConnection
	session string
	rooms   map[domain.RoomName]struct{}
	cancel  context.CancelFunc
	closed  bool
}

type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnectionID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnectionID]*connEntry),
	}
}

// Admit registers a live connection and assigns its id.
func (r *Registry) Admit(conn core.SignalConnection, session string, cancel context.CancelFunc) core.ConnectionID {
	id := core.ConnectionID(uuid.NewString())
	r.mu.Lock()
	r.conns[id] = &connEntry{
		conn:    conn,
		session: session,
		rooms:   make(map[domain.RoomName]struct{}),
		cancel:  cancel,
	}
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("session", session).Msg("connection admitted")
	return id
}

func (r *Registry) entry(id core.ConnectionID) (*connEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	return e, ok
}

func (r *Registry) Get(id core.ConnectionID) (core.SignalConnection, bool) {
	e, ok := r.entry(id)
	if !ok {
		return nil, false
	}
	return e.conn, true
}

func (r *Registry) Session(id core.ConnectionID) string {
	if e, ok := r.entry(id); ok {
		return e.session
	}
	return ""
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) RoomsOf(id core.ConnectionID) []domain.RoomName {
	e, ok := r.entry(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.RoomName, 0, len(e.rooms))
	for name := range e.rooms {
		out = append(out, name)
	}
	return out
}

// AddRoom records name for id and runs join while holding the entry lock.
// join is skipped when the connection is unknown, released, or already in
// the room.
func (r *Registry) AddRoom(id core.ConnectionID, name domain.RoomName, join func(core.SignalConnection)) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if _, ok := e.rooms[name]; ok {
		return true
	}
	join(e.conn)
	e.rooms[name] = struct{}{}
	return true
}

// RemoveRoom is the inverse of AddRoom; leave only runs for a room id is in.
func (r *Registry) RemoveRoom(id core.ConnectionID, name domain.RoomName, leave func()) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rooms[name]; !ok {
		return false
	}
	leave()
	delete(e.rooms, name)
	return true
}

// Release drops the record and runs leave for every room it still belonged
// to, under the entry lock. After Release no AddRoom for id can succeed. A
// second call returns ok=false.
func (r *Registry) Release(id core.ConnectionID, leave func(domain.RoomName)) (core.SignalConnection, bool) {
	r.mu.Lock()
	e, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	e.closed = true
	n := len(e.rooms)
	for name := range e.rooms {
		leave(name)
		delete(e.rooms, name)
	}
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Int("rooms", n).Msg("connection released")
	return e.conn, true
}

// Each calls fn for every admitted connection id.
func (r *Registry) Each(fn func(core.ConnectionID)) {
	r.mu.RLock()
	ids := make([]core.ConnectionID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		fn(id)
	}
}
