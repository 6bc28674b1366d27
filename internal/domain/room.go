package domain

import "time"

// RoomCodeLen is the number of digits in a room code.
const RoomCodeLen = 6

type RoomCode string

// ValidRoomCode reports whether s is exactly six ASCII digits.
func ValidRoomCode(s string) bool {
	if len(s) != RoomCodeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

type Room struct {
	Code      RoomCode
	CreatedAt time.Time
}
