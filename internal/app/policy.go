package app

import "github.com/dkeye/babel/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose send buffer refused a frame.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy drops the connection; the client reconnects and the grace
// registry hands its identity back.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction {
	return KickMember
}

// TolerantPolicy never kicks; the frame is simply lost for that member.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return NoAction
}

// PolicyFor maps the backpressure config value onto a policy.
// Anything other than "tolerate" kicks.
func PolicyFor(name string) Policy {
	if name == "tolerate" {
		return TolerantPolicy{}
	}
	return SimplePolicy{}
}
