package app

import "github.com/dkeye/leadrelay/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer refused a frame.
// The frame itself is always lost.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.ConnectionID) BackpressureAction
}

// DropPolicy keeps slow members connected; they simply miss the frame.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.RoomService, core.ConnectionID) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects members that cannot keep up.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.RoomService, core.ConnectionID) BackpressureAction {
	return KickMember
}

// PolicyByName maps the backpressure config value to a Policy. Unknown names
// fall back to DropPolicy.
func PolicyByName(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return DropPolicy{}
}
