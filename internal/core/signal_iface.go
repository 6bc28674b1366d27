package core

// Frame is a raw encoded payload (one websocket text message).
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend never blocks; a full buffer is an error.
	TrySend(Frame) error
	Close()
}
