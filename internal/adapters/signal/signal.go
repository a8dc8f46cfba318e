package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/dkeye/leadrelay/internal/app/orch"
	"github.com/dkeye/leadrelay/internal/config"
	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Orch *orch.Orchestrator
	Cfg  *config.Config

	upgrader websocket.Upgrader
}

func NewSignalWSController(o *orch.Orchestrator, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Orch: o,
		Cfg:  cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.AllowOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and starts the connection's pumps. The
// pumps outlive the handler; ctx bounds them.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	session := c.GetString("client_token")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	sid := ctl.Orch.Connect(conn, session, cancel)
	log.Info().Str("module", "signal").Str("conn", string(sid)).Str("session", session).Msg("new WS connection")

	ctl.sendJSON(conn, protocol.Connected, protocol.ConnectedPayload{ID: string(sid)})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
