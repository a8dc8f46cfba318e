package core

import (
	"sync"

	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	name    domain.RoomName
	mu      sync.RWMutex
	members map[ConnectionID]SignalConnection
	stopped bool
}

func NewRoomService(name domain.RoomName) RoomService {
	return &roomImpl{
		name:    name,
		members: make(map[ConnectionID]SignalConnection),
	}
}

func (r *roomImpl) Name() domain.RoomName { return r.name }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Members() []ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnectionID, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	return out
}

func (r *roomImpl) AddMember(id ConnectionID, conn SignalConnection) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false, ErrRoomStopped
	}
	if _, ok := r.members[id]; ok {
		return false, nil
	}
	r.members[id] = conn
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("conn", string(id)).Msg("member added")
	return true, nil
}

func (r *roomImpl) RemoveMember(id ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	log.Info().Str("module", "core.room").Str("room", string(r.name)).Str("conn", string(id)).Msg("member removed")
	return true
}

// Broadcast holds the read lock for the whole fan-out so that a join or leave
// cannot interleave with it. TrySend never blocks.
func (r *roomImpl) Broadcast(exclude ConnectionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, conn := range r.members {
		if exclude != "" && id == exclude {
			continue
		}
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.name)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) > 0 {
		return false
	}
	r.stopped = true
	return true
}
