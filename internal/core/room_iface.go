package core

import (
	"time"

	"github.com/dkeye/babel/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	Username string       `json:"username"`
	Color    domain.Color `json:"color"`
	IsHost   bool         `json:"isHost"`
}

// JoinRequest is what a connection asks for when entering a room.
// Restored, when set, wins over the requested fields.
type JoinRequest struct {
	Role     domain.Role
	Name     string
	Color    domain.Color
	Restored *domain.PendingIdentity
	// Reserved colors belong to members inside their grace window.
	Reserved map[domain.Color]bool
}

type JoinOutcome struct {
	Member domain.Member
	// Displaced is the previous live host demoted to guest by a rehost.
	Displaced *domain.Member
	Restored  bool
}

// EncodeFunc turns a stored message into the frame fanned out to members.
type EncodeFunc func(domain.Message) (Frame, error)

// RoomService is the core-facing API of a room.
// It owns the membership set and history but never touches transport resources.
// Every mutation is serialized per room.
type RoomService interface {
	Room() domain.Room
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Member(sid SessionID) (domain.Member, bool)

	HasHost() bool
	HostAvailable(name string) bool
	SetHostName(name string)

	Join(sid SessionID, ms MemberSession, req JoinRequest) (JoinOutcome, error)
	Leave(sid SessionID) (domain.Member, bool)
	Rename(sid SessionID, name string) (domain.Member, error)

	Post(msg domain.Message, encode EncodeFunc) (domain.Message, PublishResult, error)
	Recent(limit int) []domain.Message
	HistoryLen() int
	Broadcast(except SessionID, data Frame) PublishResult

	// TryClose marks an empty room closed; a closed room refuses joins.
	TryClose() bool
}

type RoomInfo struct {
	Code        domain.RoomCode `json:"room"`
	MemberCount int             `json:"client_count"`
	HasHost     bool            `json:"has_host"`
	CreatedAt   time.Time       `json:"created_at"`
}

type RoomStore interface {
	GetOrCreate(code domain.RoomCode) RoomService
	Get(code domain.RoomCode) (RoomService, bool)
	Create() (RoomService, error)
	RemoveIfEmpty(code domain.RoomCode, after time.Duration)
	List() []RoomInfo
	Len() int
}
