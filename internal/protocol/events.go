// Package protocol defines the JSON event envelope exchanged over the chat
// socket and the payloads carried by each event.
package protocol

// client -> server
const (
	JoinLeadChat  = "join-lead-chat"
	LeaveLeadChat = "leave-lead-chat"
	SendMessage   = "send-message"
	LogCall       = "log-call"
	Typing        = "typing"
	StopTyping    = "stop-typing"
)

// server -> client
const (
	Connected      = "connected"
	NewMessage     = "new-message"
	UserTyping     = "user-typing"
	UserStopTyping = "user-stop-typing"
)

// TimestampLayout matches JavaScript's Date.toISOString for UTC times.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
