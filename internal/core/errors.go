package core

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomClosed      = errors.New("room closed")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrNotInRoom       = errors.New("not in room")
	ErrEmptyMessage    = errors.New("empty message")
	ErrMessageTooLong  = errors.New("message too long")
	ErrHostTaken       = errors.New("room already has a host")
	ErrNoFreeCode      = errors.New("no free room code")
)
