package app

import (
	"errors"
	"sync"

	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl creates rooms on first join and drops them when the last
// member leaves. Lock order is manager, then room.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]core.RoomService
}

func NewRoomManager() core.RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomName]core.RoomService)}
}

func (f *RoomManagerImpl) Get(name domain.RoomName) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[name]
	return room, ok
}

func (f *RoomManagerImpl) getOrCreate(name domain.RoomName) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[name]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[name]; ok {
		return room
	}
	room = core.NewRoomService(name)
	f.rooms[name] = room
	log.Debug().Str("module", "app.rooms").Str("room", string(name)).Msg("room created")
	return room
}

// Join adds id to the room, creating it if needed. It reports whether the
// membership is new.
func (f *RoomManagerImpl) Join(name domain.RoomName, id core.ConnectionID, conn core.SignalConnection) bool {
	for {
		room := f.getOrCreate(name)
		added, err := room.AddMember(id, conn)
		if errors.Is(err, core.ErrRoomStopped) {
			// lost the race with collect; the map no longer holds this room
			continue
		}
		return added
	}
}

func (f *RoomManagerImpl) Leave(name domain.RoomName, id core.ConnectionID) bool {
	room, ok := f.Get(name)
	if !ok {
		return false
	}
	removed := room.RemoveMember(id)
	if room.MemberCount() == 0 {
		f.collect(name, room)
	}
	return removed
}

func (f *RoomManagerImpl) collect(name domain.RoomName, room core.RoomService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.rooms[name]; !ok || cur != room {
		return
	}
	if room.Stop() {
		delete(f.rooms, name)
		log.Debug().Str("module", "app.rooms").Str("room", string(name)).Msg("room collected")
	}
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for name, r := range f.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return out
}

func (f *RoomManagerImpl) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}
