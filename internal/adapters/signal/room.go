package signal

import (
	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/protocol"
)

func (ctl *SignalWSController) handleJoin(sid core.ConnectionID, env protocol.Envelope) bool {
	lead, err := protocol.LeadRef(env.Data)
	if err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	ctl.Orch.Join(sid, lead)
	return true
}

// handleLeave leaves one room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid core.ConnectionID, env protocol.Envelope) bool {
	lead, err := protocol.LeadRef(env.Data)
	if err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	ctl.Orch.Leave(sid, lead)
	return true
}
