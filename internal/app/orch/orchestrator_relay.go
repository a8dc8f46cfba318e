package orch

import (
	"context"

	"github.com/dkeye/leadrelay/internal/app"
	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/dkeye/leadrelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

// SendMessage stamps a chat message and delivers new-message to every member
// of the lead's room, the sender included. The echo is the sender's only
// acknowledgement.
func (o *Orchestrator) SendMessage(from core.ConnectionID, lead domain.LeadID, text string, sender domain.Label) domain.Message {
	return o.SendPlatformMessage(from, lead, text, sender, "")
}

// SendPlatformMessage is SendMessage for messages that arrived through an
// external channel (LINE, Facebook, ...).
func (o *Orchestrator) SendPlatformMessage(from core.ConnectionID, lead domain.LeadID, text string, sender domain.Label, platform domain.Platform) domain.Message {
	msg := domain.NewChatMessage(lead, sender, text, o.now())
	msg.Platform = platform
	o.relay(from, msg)
	return msg
}

// LogCall relays a call entry over the same new-message path.
func (o *Orchestrator) LogCall(from core.ConnectionID, lead domain.LeadID, sender domain.Label, call domain.CallDetails) (domain.Message, error) {
	msg, err := domain.NewCallMessage(lead, sender, call, o.now())
	if err != nil {
		return domain.Message{}, err
	}
	o.relay(from, msg)
	return msg, nil
}

func (o *Orchestrator) relay(from core.ConnectionID, msg domain.Message) {
	o.publish(protocol.NewMessage, msg.LeadID, "", protocol.NewMessageFrom(msg))
	log.Info().Str("module", "orch").Str("conn", string(from)).Str("lead", string(msg.LeadID)).Str("sender", string(msg.Sender)).Msg("message sent")

	if o.Sink != nil {
		if err := o.Sink.Record(context.Background(), msg); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("id", msg.ID).Msg("sink record failed")
		}
	}
}

// NotifyTyping tells the rest of the room that sig.User is typing. The
// originating connection does not get its own signal back.
func (o *Orchestrator) NotifyTyping(from core.ConnectionID, sig domain.TypingSignal) {
	o.publish(protocol.UserTyping, sig.LeadID, from, protocol.NewTypingPayload(sig))
}

func (o *Orchestrator) NotifyStopTyping(from core.ConnectionID, sig domain.TypingSignal) {
	o.publish(protocol.UserStopTyping, sig.LeadID, from, protocol.NewTypingPayload(sig))
}

func (o *Orchestrator) publish(event string, lead domain.LeadID, exclude core.ConnectionID, payload any) {
	room, ok := o.Rooms.Get(domain.RoomFor(lead))
	if !ok {
		return
	}
	data, err := protocol.Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode")
		return
	}

	res := room.Broadcast(exclude, data)
	o.Metrics.Fanout(event, res.SentTo, len(res.Dropped))
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("conn", string(slow)).Str("room", string(room.Name())).Msg("kicking slow member")
			o.Disconnect(slow)
		case app.DropFrame, app.NoAction:
		}
	}
}
