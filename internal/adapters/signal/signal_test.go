package signal

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/leadrelay/internal/app"
	"github.com/dkeye/leadrelay/internal/app/orch"
	"github.com/dkeye/leadrelay/internal/config"
	"github.com/dkeye/leadrelay/internal/core"
	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/dkeye/leadrelay/internal/metrics"
	"github.com/dkeye/leadrelay/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func testConfig() *config.Config {
	return &config.Config{
		Port:       4001,
		CorsOrigin: "http://localhost:3000",
		ReadLimit:  32768,
		PingPeriod: time.Minute,
		PongWait:   2 * time.Minute,
		WriteWait:  time.Second,
		SendBuffer: 16,
	}
}

func newRelay(t *testing.T, cfg *config.Config) (*orch.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.DropPolicy{})
	ctrl := NewSignalWSController(o, cfg)

	r := gin.New()
	r.GET("/socket", func(c *gin.Context) { ctrl.HandleSignal(t.Context(), c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket"
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
	id core.ConnectionID
}

func dial(t *testing.T, url string) *client {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	c := &client{t: t, ws: ws}
	env := c.read()
	require.Equal(t, protocol.Connected, env.Event)
	id, _ := env.Data.(map[string]any)["id"].(string)
	require.NotEmpty(t, id)
	c.id = core.ConnectionID(id)
	return c
}

func (c *client) send(event string, data any) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteJSON(protocol.Envelope{Event: event, Data: data}))
}

func (c *client) sendRaw(raw string) {
	c.t.Helper()
	require.NoError(c.t, c.ws.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func (c *client) read() protocol.Envelope {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(waitFor)))
	_, raw, err := c.ws.ReadMessage()
	require.NoError(c.t, err)
	env, err := protocol.Decode(raw)
	require.NoError(c.t, err)
	return env
}

func (c *client) readMessage() domain.Message {
	c.t.Helper()
	env := c.read()
	require.Equal(c.t, protocol.NewMessage, env.Event)
	m, err := protocol.DecodeNewMessage(env.Data)
	require.NoError(c.t, err)
	return m
}

func waitMembers(t *testing.T, o *orch.Orchestrator, lead domain.LeadID, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(o.MembersOf(lead)) == n }, waitFor, 10*time.Millisecond)
}

func msg(lead any, text, sender string) map[string]any {
	return map[string]any{"leadId": lead, "message": text, "sender": sender}
}

func TestSignal_BroadcastIncludesSender(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a, b := dial(t, url), dial(t, url)

	a.send(protocol.JoinLeadChat, "42")
	b.send(protocol.JoinLeadChat, "42")
	waitMembers(t, o, "42", 2)

	before := time.Now().Truncate(time.Millisecond)
	a.send(protocol.SendMessage, msg("42", "hi", "agent"))

	for _, c := range []*client{a, b} {
		m := c.readMessage()
		assert.Equal(t, domain.LeadID("42"), m.LeadID)
		assert.Equal(t, "hi", m.Text)
		assert.Equal(t, domain.Label("agent"), m.Sender)
		assert.False(t, m.Timestamp.Before(before))
	}
}

func TestSignal_NumericLeadIDJoinsSameRoom(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a, b := dial(t, url), dial(t, url)

	a.send(protocol.JoinLeadChat, 42)
	b.send(protocol.JoinLeadChat, map[string]any{"leadId": "42"})
	waitMembers(t, o, "42", 2)

	b.send(protocol.SendMessage, msg(42, "numeric", "customer"))
	assert.Equal(t, "numeric", a.readMessage().Text)
}

func TestSignal_RoomIsolation(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a, b := dial(t, url), dial(t, url)

	a.send(protocol.JoinLeadChat, "1")
	b.send(protocol.JoinLeadChat, "2")
	waitMembers(t, o, "1", 1)
	waitMembers(t, o, "2", 1)

	a.send(protocol.SendMessage, msg("1", "for one", "agent"))
	b.send(protocol.SendMessage, msg("2", "for two", "agent"))

	assert.Equal(t, "for one", a.readMessage().Text)
	assert.Equal(t, "for two", b.readMessage().Text)
}

func TestSignal_TypingSkipsOriginator(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a, b := dial(t, url), dial(t, url)

	a.send(protocol.JoinLeadChat, "42")
	b.send(protocol.JoinLeadChat, "42")
	waitMembers(t, o, "42", 2)

	a.send(protocol.Typing, map[string]any{"leadId": "42", "user": "Somchai"})
	a.send(protocol.StopTyping, map[string]any{"leadId": "42", "user": "Somchai"})
	a.send(protocol.SendMessage, msg("42", "done", "Somchai"))

	env := b.read()
	assert.Equal(t, protocol.UserTyping, env.Event)
	sig, err := protocol.DecodeTyping(env.Data)
	require.NoError(t, err)
	assert.Equal(t, domain.TypingSignal{LeadID: "42", User: "Somchai"}, sig)
	assert.Equal(t, protocol.UserStopTyping, b.read().Event)
	assert.Equal(t, "done", b.readMessage().Text)

	// a's first frame after joining is its own message, not its typing echo
	assert.Equal(t, "done", a.readMessage().Text)
}

func TestSignal_LeaveKeepsConnectionOpen(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a, b := dial(t, url), dial(t, url)

	a.send(protocol.JoinLeadChat, "42")
	b.send(protocol.JoinLeadChat, "42")
	waitMembers(t, o, "42", 2)

	b.send(protocol.LeaveLeadChat, "42")
	waitMembers(t, o, "42", 1)
	a.send(protocol.SendMessage, msg("42", "while away", "agent"))
	assert.Equal(t, "while away", a.readMessage().Text)

	b.send(protocol.JoinLeadChat, "42")
	waitMembers(t, o, "42", 2)
	a.send(protocol.SendMessage, msg("42", "welcome back", "agent"))
	assert.Equal(t, "welcome back", b.readMessage().Text)
}

func TestSignal_MalformedEventsAreDropped(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a := dial(t, url)

	a.sendRaw(`not json`)
	a.sendRaw(`{"data":"42"}`)
	a.send("reticulate-splines", "42")
	a.send(protocol.JoinLeadChat, nil)
	a.send(protocol.SendMessage, map[string]any{"leadId": "42"})
	a.send(protocol.Typing, "42")
	a.send(protocol.LogCall, map[string]any{"leadId": "42", "sender": "agent", "status": "voicemail"})

	a.send(protocol.JoinLeadChat, "42")
	waitMembers(t, o, "42", 1)
	a.send(protocol.SendMessage, msg("42", "still here", "agent"))
	assert.Equal(t, "still here", a.readMessage().Text)
}

func TestSignal_LogCall(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a := dial(t, url)
	a.send(protocol.JoinLeadChat, "42")
	waitMembers(t, o, "42", 1)

	a.send(protocol.LogCall, map[string]any{"leadId": "42", "sender": "agent", "duration": 75, "status": "completed"})
	m := a.readMessage()
	assert.Equal(t, domain.VariantCall, m.Variant)
	require.NotNil(t, m.Call)
	assert.Equal(t, 75, m.Call.DurationSeconds)
}

func TestSignal_DisconnectCleansUp(t *testing.T) {
	o, url := newRelay(t, testConfig())
	a, b := dial(t, url), dial(t, url)

	a.send(protocol.JoinLeadChat, "1")
	b.send(protocol.JoinLeadChat, "1")
	b.send(protocol.JoinLeadChat, "2")
	waitMembers(t, o, "1", 2)
	waitMembers(t, o, "2", 1)

	require.NoError(t, b.ws.Close())
	waitMembers(t, o, "1", 1)
	waitMembers(t, o, "2", 0)
	require.Eventually(t, func() bool { return o.Registry.Count() == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []core.ConnectionID{a.id}, o.MembersOf("1"))
}

func TestSignal_RejectsForeignOrigin(t *testing.T) {
	_, url := newRelay(t, testConfig())

	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestConnRateLimiter(t *testing.T) {
	assert.True(t, newConnRateLimiter(0, 0).Allow())

	l := newConnRateLimiter(0.001, 2)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

type discardConn struct{}

func (discardConn) TrySend(core.Frame) error { return nil }
func (discardConn) Close()                   {}

func TestHandleSignal_MalformedNotCountedAsInbound(t *testing.T) {
	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.DropPolicy{})
	reg := prometheus.NewRegistry()
	o.Metrics = metrics.New(reg, nil)
	ctl := NewSignalWSController(o, testConfig())
	sid := o.Connect(discardConn{}, "", nil)

	ctl.handleSignal(sid, []byte(`{"event":"join-lead-chat","data":"42"}`))
	ctl.handleSignal(sid, []byte(`{"event":"send-message","data":{"leadId":"42","message":false,"sender":"agent"}}`))
	ctl.handleSignal(sid, []byte(`{"event":"log-call","data":{"leadId":"42","sender":"agent","status":"voicemail"}}`))
	ctl.handleSignal(sid, []byte(`{"event":"send-message","data":{"leadId":"42","message":"hi","sender":"agent"}}`))

	expected := `
# HELP leadrelay_inbound_events_total Well-formed events received from clients.
# TYPE leadrelay_inbound_events_total counter
leadrelay_inbound_events_total{event="join-lead-chat"} 1
leadrelay_inbound_events_total{event="send-message"} 1
# HELP leadrelay_malformed_events_total Inbound events dropped because they could not be decoded.
# TYPE leadrelay_malformed_events_total counter
leadrelay_malformed_events_total{event="log-call"} 1
leadrelay_malformed_events_total{event="send-message"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"leadrelay_inbound_events_total", "leadrelay_malformed_events_total"))
}
