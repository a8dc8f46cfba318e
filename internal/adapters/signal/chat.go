package signal

import (
	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/dkeye/leadrelay/internal/protocol"
)

func (ctl *SignalWSController) handleSendMessage(sid core.ConnectionID, env protocol.Envelope) bool {
	in, sender, err := protocol.DecodeSendMessage(env.Data)
	if err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	ctl.Orch.SendPlatformMessage(sid, domain.LeadID(in.LeadID), in.Message, sender, domain.Platform(in.Platform))
	return true
}

func (ctl *SignalWSController) handleLogCall(sid core.ConnectionID, env protocol.Envelope) bool {
	lead, sender, call, err := protocol.DecodeLogCall(env.Data)
	if err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	if _, err := ctl.Orch.LogCall(sid, lead, sender, call); err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	return true
}

func (ctl *SignalWSController) handleTyping(sid core.ConnectionID, env protocol.Envelope) bool {
	sig, err := protocol.DecodeTyping(env.Data)
	if err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	ctl.Orch.NotifyTyping(sid, sig)
	return true
}

func (ctl *SignalWSController) handleStopTyping(sid core.ConnectionID, env protocol.Envelope) bool {
	sig, err := protocol.DecodeTyping(env.Data)
	if err != nil {
		ctl.malformed(sid, env, err)
		return false
	}
	ctl.Orch.NotifyStopTyping(sid, sig)
	return true
}
