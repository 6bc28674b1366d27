package core

// ConnState is the lifecycle position of one connection.
// Disconnected is both the initial and the resting state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateJoining
	StateActive
)

func (s ConnState) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	default:
		return "disconnected"
	}
}
