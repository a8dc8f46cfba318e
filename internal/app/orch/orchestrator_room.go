package orch

import (
	"slices"

	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join adds id to the lead's room. Joining twice is the same as joining once;
// an unknown or released id is ignored.
func (o *Orchestrator) Join(id core.ConnectionID, lead domain.LeadID) bool {
	name := domain.RoomFor(lead)
	ok := o.Registry.AddRoom(id, name, func(conn core.SignalConnection) {
		o.Rooms.Join(name, id, conn)
	})
	if ok {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(name)).Msg("joined")
	}
	return ok
}

// Leave removes id from the lead's room. Leaving a room that was never joined
// is a no-op.
func (o *Orchestrator) Leave(id core.ConnectionID, lead domain.LeadID) bool {
	name := domain.RoomFor(lead)
	ok := o.Registry.RemoveRoom(id, name, func() {
		o.Rooms.Leave(name, id)
	})
	if ok {
		log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(name)).Msg("left")
	}
	return ok
}

// MembersOf returns the current members of the lead's room.
func (o *Orchestrator) MembersOf(lead domain.LeadID) []core.ConnectionID {
	room, ok := o.Rooms.Get(domain.RoomFor(lead))
	if !ok {
		return nil
	}
	return room.Members()
}

// LeadsOf returns the leads whose rooms id is currently in, sorted.
func (o *Orchestrator) LeadsOf(id core.ConnectionID) []domain.LeadID {
	var out []domain.LeadID
	for _, name := range o.Registry.RoomsOf(id) {
		if lead, ok := name.Lead(); ok {
			out = append(out, lead)
		}
	}
	slices.Sort(out)
	return out
}

func (o *Orchestrator) RoomsList() []core.RoomInfo {
	return o.Rooms.List()
}
