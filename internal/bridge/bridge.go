// Package bridge is the dashboard side of the chat relay: one connection per
// session that follows the lead the agent has open.
package bridge

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/dkeye/leadrelay/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Disabled as the URL puts the bridge in standalone mode without dialing.
const Disabled = "disabled"

const (
	defaultTypingTimeout = 3 * time.Second
	writeWait            = 5 * time.Second
)

var ErrNoLead = errors.New("no lead selected")

type EventKind int

const (
	EventMessage EventKind = iota
	EventTyping
	EventStopTyping
	EventDisconnected
)

// Event is delivered to Options.OnEvent after lead filtering.
type Event struct {
	Kind    EventKind
	Message domain.Message
	Typing  domain.TypingSignal
}

type Options struct {
	URL           string
	Header        http.Header
	Dialer        *websocket.Dialer
	TypingTimeout time.Duration
	OnEvent       func(Event)
}

type Bridge struct {
	opts Options
	view *View

	connectOnce sync.Once
	conn        *websocket.Conn
	writeMu     sync.Mutex
	connected   atomic.Bool
	id          atomic.Value // string
	done        chan struct{}

	mu       sync.Mutex
	lead     domain.LeadID
	selected bool
}

func New(opts Options) *Bridge {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.TypingTimeout == 0 {
		opts.TypingTimeout = defaultTypingTimeout
	}
	b := &Bridge{
		opts: opts,
		view: NewView(opts.TypingTimeout),
		done: make(chan struct{}),
	}
	b.id.Store("")
	return b
}

// Connect makes a single connection attempt. An empty or disabled URL, or a
// failed dial, leaves the bridge in standalone mode; that is not an error.
// There is no reconnection: only the first call does anything.
func (b *Bridge) Connect(ctx context.Context) {
	b.connectOnce.Do(func() { b.connect(ctx) })
}

func (b *Bridge) connect(ctx context.Context) {
	if b.opts.URL == "" || b.opts.URL == Disabled {
		log.Info().Str("module", "bridge").Msg("socket disabled - running in standalone mode")
		close(b.done)
		return
	}
	conn, _, err := b.opts.Dialer.DialContext(ctx, b.opts.URL, b.opts.Header)
	if err != nil {
		log.Info().Err(err).Str("module", "bridge").Msg("socket connection failed - running in standalone mode")
		close(b.done)
		return
	}
	b.conn = conn
	b.connected.Store(true)
	log.Info().Str("module", "bridge").Str("url", b.opts.URL).Msg("socket connected")
	go b.readLoop()
}

func (b *Bridge) Connected() bool { return b.connected.Load() }

// ID is the connection id the relay assigned, once known.
func (b *Bridge) ID() string { return b.id.Load().(string) }

func (b *Bridge) View() *View { return b.view }

// Done is closed when the bridge stops receiving (disconnect or standalone).
func (b *Bridge) Done() <-chan struct{} { return b.done }

func (b *Bridge) Lead() (domain.LeadID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lead, b.selected
}

// SelectLead switches the open conversation: leave the previous room, reset
// the view, join the new one. Selecting the open lead again does nothing.
func (b *Bridge) SelectLead(lead domain.LeadID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selected && b.lead == lead {
		return nil
	}
	if b.selected {
		if err := b.emit(protocol.LeaveLeadChat, string(b.lead)); err != nil {
			return err
		}
	}
	b.lead, b.selected = lead, true
	b.view.Reset(lead)
	return b.emit(protocol.JoinLeadChat, string(lead))
}

// Deselect leaves the open conversation, if any.
func (b *Bridge) Deselect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.selected {
		return nil
	}
	prev := b.lead
	b.lead, b.selected = "", false
	b.view.Reset("")
	return b.emit(protocol.LeaveLeadChat, string(prev))
}

func (b *Bridge) SendMessage(text string, sender domain.Label) error {
	lead, ok := b.Lead()
	if !ok {
		return ErrNoLead
	}
	return b.emit(protocol.SendMessage, map[string]string{
		"leadId":  string(lead),
		"message": text,
		"sender":  string(sender),
	})
}

func (b *Bridge) LogCall(sender domain.Label, call domain.CallDetails) error {
	lead, ok := b.Lead()
	if !ok {
		return ErrNoLead
	}
	return b.emit(protocol.LogCall, map[string]any{
		"leadId":   string(lead),
		"sender":   string(sender),
		"duration": call.DurationSeconds,
		"status":   string(call.Status),
		"notes":    call.Notes,
	})
}

func (b *Bridge) Typing(user domain.Label) error {
	return b.typing(protocol.Typing, user)
}

func (b *Bridge) StopTyping(user domain.Label) error {
	return b.typing(protocol.StopTyping, user)
}

func (b *Bridge) typing(event string, user domain.Label) error {
	lead, ok := b.Lead()
	if !ok {
		return ErrNoLead
	}
	return b.emit(event, protocol.NewTypingPayload(domain.TypingSignal{LeadID: lead, User: user}))
}

// Close leaves the open room and closes the connection.
func (b *Bridge) Close() error {
	if b.conn == nil {
		return nil
	}
	if b.Connected() {
		_ = b.Deselect()
		b.writeMu.Lock()
		_ = b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		b.writeMu.Unlock()
		b.connected.Store(false)
	}
	return b.conn.Close()
}

// emit is a no-op in standalone mode.
func (b *Bridge) emit(event string, data any) error {
	if !b.Connected() {
		log.Debug().Str("module", "bridge").Str("event", event).Msg("standalone, not sent")
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteJSON(protocol.Envelope{Event: event, Data: data})
}

func (b *Bridge) readLoop() {
	defer func() {
		b.connected.Store(false)
		close(b.done)
		log.Info().Str("module", "bridge").Msg("socket disconnected")
		b.notify(Event{Kind: EventDisconnected})
	}()
	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.Decode(raw)
		if err != nil {
			log.Warn().Err(err).Str("module", "bridge").Msg("bad frame")
			continue
		}
		b.handle(env)
	}
}

func (b *Bridge) handle(env protocol.Envelope) {
	switch env.Event {
	case protocol.Connected:
		if m, ok := env.Data.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				b.id.Store(id)
			}
		}
	case protocol.NewMessage:
		msg, err := protocol.DecodeNewMessage(env.Data)
		if err != nil {
			log.Warn().Err(err).Str("module", "bridge").Msg("bad new-message")
			return
		}
		if !b.ifOpen(msg.LeadID, func() { b.view.AddMessage(msg) }) {
			return
		}
		b.notify(Event{Kind: EventMessage, Message: msg})
	case protocol.UserTyping, protocol.UserStopTyping:
		sig, err := protocol.DecodeTyping(env.Data)
		if err != nil {
			log.Warn().Err(err).Str("module", "bridge").Msg("bad typing signal")
			return
		}
		kind, apply := EventTyping, b.view.SetTyping
		if env.Event == protocol.UserStopTyping {
			kind, apply = EventStopTyping, b.view.ClearTyping
		}
		if !b.ifOpen(sig.LeadID, func() { apply(sig.User) }) {
			return
		}
		b.notify(Event{Kind: kind, Typing: sig})
	default:
		log.Debug().Str("module", "bridge").Str("event", env.Event).Msg("ignored event")
	}
}

// ifOpen runs apply only if lead is the open conversation. The check and
// apply happen under b.mu so a concurrent SelectLead cannot interleave.
func (b *Bridge) ifOpen(lead domain.LeadID, apply func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.selected || b.lead != lead {
		return false
	}
	apply()
	return true
}

func (b *Bridge) notify(ev Event) {
	if b.opts.OnEvent != nil {
		b.opts.OnEvent(ev)
	}
}
