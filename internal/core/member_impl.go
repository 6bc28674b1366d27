package core

import "sync/atomic"

// memberSession implements MemberSession by pairing id + transport.
type memberSession struct {
	id     SessionID
	signal SignalConnection
	state  atomic.Int32
}

func NewMemberSession(id SessionID, signal SignalConnection) MemberSession {
	return &memberSession{id: id, signal: signal}
}

func (m *memberSession) ID() SessionID            { return m.id }
func (m *memberSession) Signal() SignalConnection { return m.signal }
func (m *memberSession) State() ConnState         { return ConnState(m.state.Load()) }
func (m *memberSession) SetState(s ConnState)     { m.state.Store(int32(s)) }
