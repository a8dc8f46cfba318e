package domain

import "strings"

type (
	LeadID   string
	RoomName string
)

const roomPrefix = "lead-"

// RoomFor derives the per-lead room key. Any lead id is valid, including
// ones the lead service has never heard of.
func RoomFor(lead LeadID) RoomName {
	return RoomName(roomPrefix + string(lead))
}

// Lead returns the lead id a room was derived from.
func (n RoomName) Lead() (LeadID, bool) {
	id, ok := strings.CutPrefix(string(n), roomPrefix)
	return LeadID(id), ok
}
