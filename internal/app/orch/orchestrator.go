package orch

import (
	"context"
	"time"

	"github.com/dkeye/leadrelay/internal/app"
	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/dkeye/leadrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the relay's single context object: connection registry,
// room membership and fan-out. Build one per process and hand it to the
// transport adapter.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	Sink     app.MessageSink
	Metrics  *metrics.Relay

	// Now stamps relayed messages. Defaults to time.Now.
	Now func() time.Time
}

func New(reg *app.Registry, rooms core.RoomManager, policy app.Policy) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Policy:   policy,
		Sink:     app.LogSink{},
		Now:      time.Now,
	}
}

// Connect admits conn. cancel stops the adapter's pumps and is invoked once on
// Disconnect.
func (o *Orchestrator) Connect(conn core.SignalConnection, session string, cancel context.CancelFunc) core.ConnectionID {
	id := o.Registry.Admit(conn, session, cancel)
	o.Metrics.ConnOpened()
	return id
}

// Disconnect removes id from every room it joined, then drops the record and
// closes the transport. Calling it again for the same id does nothing.
func (o *Orchestrator) Disconnect(id core.ConnectionID) {
	session := o.Registry.Session(id)
	conn, ok := o.Registry.Release(id, func(name domain.RoomName) {
		o.Rooms.Leave(name, id)
	})
	if !ok {
		return
	}
	conn.Close()
	o.Metrics.ConnClosed()
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("session", session).Msg("disconnected")
}

// Shutdown disconnects every live connection.
func (o *Orchestrator) Shutdown() {
	o.Registry.Each(o.Disconnect)
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}
