package domain

import "time"

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Identity is what a room hands out on join: who you are and how you look.
type Identity struct {
	Username string `json:"username"`
	Color    Color  `json:"color"`
	Role     Role   `json:"role"`
}

// Member represents a live connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	ConnectionID string
	Identity
}

func (m Member) IsHost() bool { return m.Role == RoleHost }

// PendingIdentity is the snapshot kept for a member that dropped off,
// so a quick reconnect can resume the same identity.
type PendingIdentity struct {
	Identity
	RoomCode       RoomCode
	DisconnectedAt time.Time
}
