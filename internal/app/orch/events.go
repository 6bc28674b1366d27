package orch

import (
	"encoding/json"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
)

// Outbound event names.
const (
	EventRoomJoined     = "room-joined"
	EventRecentMessages = "recent-messages"
	EventUserJoined     = "user-joined"
	EventUserLeft       = "user-left"
	EventUserCount      = "user-count"
	EventUserList       = "user-list"
	EventChatMessage    = "chat-message"
)

type roomJoinedEvent struct {
	Type     string          `json:"type"`
	Room     domain.RoomCode `json:"room"`
	Username string          `json:"username"`
	Color    domain.Color    `json:"color"`
	IsHost   bool            `json:"isHost"`
	Restored bool            `json:"restored"`
}

type recentMessagesEvent struct {
	Type     string           `json:"type"`
	Messages []domain.Message `json:"messages"`
}

type userEvent struct {
	Type     string       `json:"type"`
	Username string       `json:"username"`
	Color    domain.Color `json:"color"`
}

type userCountEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type userListEvent struct {
	Type  string           `json:"type"`
	Users []core.MemberDTO `json:"users"`
}

type chatMessageEvent struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

func encode(v any) (core.Frame, error) {
	return json.Marshal(v)
}

func encodeChat(m domain.Message) (core.Frame, error) {
	return encode(chatMessageEvent{Type: EventChatMessage, Message: m})
}
