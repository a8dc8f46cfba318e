package core

import (
	"errors"

	"github.com/dkeye/leadrelay/internal/domain"
)

// Frame is one encoded outbound event.
type Frame []byte

type ConnectionID string

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
	ErrRoomStopped  = errors.New("room stopped")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []ConnectionID
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	Members() []ConnectionID

	// AddMember reports whether id was newly added. A stopped room returns
	// ErrRoomStopped and must be replaced by a fresh one.
	AddMember(id ConnectionID, conn SignalConnection) (bool, error)
	RemoveMember(id ConnectionID) bool
	// Broadcast sends to every member except exclude. An empty exclude
	// reaches everyone.
	Broadcast(exclude ConnectionID, data Frame) PublishResult
	// Stop marks an empty room as stopped. It reports false if the room
	// still has members.
	Stop() bool
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"member_count"`
}

type RoomManager interface {
	Get(name domain.RoomName) (RoomService, bool)
	Join(name domain.RoomName, id ConnectionID, conn SignalConnection) bool
	Leave(name domain.RoomName, id ConnectionID) bool
	List() []RoomInfo
	Count() int
}
