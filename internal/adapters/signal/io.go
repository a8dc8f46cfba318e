package signal

import (
	"context"
	"time"

	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		// unblocks readPump, which owns the disconnect
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(ctl.Cfg.WriteWait))
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.ConnectionID, c *WsSignalConn) {
	defer func() {
		leads := ctl.Orch.LeadsOf(sid)
		log.Info().Str("module", "signal").Str("conn", string(sid)).Int("rooms", len(leads)).
			Interface("leads", leads).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	limiter := newConnRateLimiter(ctl.Cfg.RateLimit, ctl.Cfg.RateBurst)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				}
				return
			}
			if !limiter.Allow() {
				log.Warn().Str("module", "signal").Str("conn", string(sid)).Msg("rate limited, event dropped")
				continue
			}
			ctl.handleSignal(sid, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid core.ConnectionID, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		ctl.Orch.Metrics.Malformed("unknown")
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("bad json")
		return
	}

	// handlers report false for payloads they dropped; those count as
	// malformed only
	var ok bool
	switch env.Event {
	case protocol.JoinLeadChat:
		ok = ctl.handleJoin(sid, env)
	case protocol.LeaveLeadChat:
		ok = ctl.handleLeave(sid, env)
	case protocol.SendMessage:
		ok = ctl.handleSendMessage(sid, env)
	case protocol.LogCall:
		ok = ctl.handleLogCall(sid, env)
	case protocol.Typing:
		ok = ctl.handleTyping(sid, env)
	case protocol.StopTyping:
		ok = ctl.handleStopTyping(sid, env)
	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown signal")
		return
	}
	if ok {
		ctl.Orch.Metrics.Inbound(env.Event)
	}
}

func (ctl *SignalWSController) malformed(sid core.ConnectionID, env protocol.Envelope, err error) {
	ctl.Orch.Metrics.Malformed(env.Event)
	log.Warn().Err(err).Str("module", "signal").Str("conn", string(sid)).Str("event", env.Event).Msg("bad payload, dropped")
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, event string, v any) {
	b, err := protocol.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
