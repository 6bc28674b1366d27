package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinRequest is a join-room event after decoding.
type JoinRequest struct {
	Room   domain.RoomCode
	IsHost bool
	Name   string
	Color  domain.Color
}

// CreateRoom allocates a fresh room. It is dropped again if nobody joins
// within the room TTL.
func (o *Orchestrator) CreateRoom() (domain.RoomCode, error) {
	room, err := o.Rooms.Create()
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	code := room.Room().Code
	o.Rooms.RemoveIfEmpty(code, o.roomTTL())
	return code, nil
}

// Join puts sid into the requested room, leaving any room it was in.
// On success the joiner gets room-joined and recent-messages, the others
// get user-joined, and everyone gets the new user count.
func (o *Orchestrator) Join(sid core.SessionID, req JoinRequest) (domain.Member, error) {
	if !domain.ValidRoomCode(string(req.Room)) {
		return domain.Member{}, core.ErrInvalidRoomCode
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.Member{}, fmt.Errorf("join %s: unknown session %s", req.Room, sid)
	}

	prevState := sess.State()
	sess.SetState(core.StateJoining)

	var (
		room core.RoomService
		jr   core.JoinRequest
		out  core.JoinOutcome
		left bool
		err  error
	)
	// A room can be closed by the empty-room timer between lookup and join;
	// one retry picks up its replacement.
	for attempt := 0; attempt < 2; attempt++ {
		room, err = o.lookupForJoin(req)
		if err != nil {
			break
		}
		if attempt == 0 {
			left = o.leaveCurrent(sid, req.Room)
			jr = o.joinRequest(req)
		}
		out, err = room.Join(sid, sess, jr)
		if !errors.Is(err, core.ErrRoomClosed) {
			break
		}
	}
	if err != nil {
		if jr.Restored != nil {
			o.Grace.Return(*jr.Restored)
		}
		if left {
			prevState = core.StateDisconnected
		}
		sess.SetState(prevState)
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(req.Room)).Msg("join failed")
		return domain.Member{}, fmt.Errorf("join %s: %w", req.Room, err)
	}

	o.Registry.UpdateRoom(sid, req.Room)
	sess.SetState(core.StateActive)
	m := out.Member

	o.send(sess, roomJoinedEvent{
		Type:     EventRoomJoined,
		Room:     req.Room,
		Username: m.Username,
		Color:    m.Color,
		IsHost:   m.IsHost(),
		Restored: out.Restored,
	})
	o.send(sess, recentMessagesEvent{Type: EventRecentMessages, Messages: room.Recent(o.recentLimit())})

	o.publish(room, sid, userEvent{Type: EventUserJoined, Username: m.Username, Color: m.Color})
	if out.Displaced != nil {
		o.publish(room, "", userListEvent{Type: EventUserList, Users: room.MembersSnapshot()})
	}
	o.publish(room, "", userCountEvent{Type: EventUserCount, Count: room.MemberCount()})

	log.Info().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("room", string(req.Room)).
		Str("username", m.Username).
		Bool("host", m.IsHost()).
		Msg("joined")
	return m, nil
}

// lookupForJoin finds the room; hosts may bring an unseen room into existence.
func (o *Orchestrator) lookupForJoin(req JoinRequest) (core.RoomService, error) {
	if room, ok := o.Rooms.Get(req.Room); ok {
		return room, nil
	}
	if !req.IsHost {
		return nil, core.ErrRoomNotFound
	}
	room := o.Rooms.GetOrCreate(req.Room)
	o.Rooms.RemoveIfEmpty(req.Room, o.roomTTL())
	return room, nil
}

func (o *Orchestrator) joinRequest(req JoinRequest) core.JoinRequest {
	jr := core.JoinRequest{Role: domain.RoleGuest, Name: req.Name, Color: req.Color}
	if req.IsHost {
		jr.Role = domain.RoleHost
	}
	if o.Grace != nil {
		if p, ok := o.Grace.TryRestore(req.Room, req.Name); ok {
			jr.Restored = &p
		}
		jr.Reserved = o.Grace.ReservedColors(req.Room)
	}
	return jr
}

// leaveCurrent drops sid from the room it is in, if any, without a grace
// snapshot: switching rooms is deliberate.
func (o *Orchestrator) leaveCurrent(sid core.SessionID, next domain.RoomCode) bool {
	code, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return false
	}
	o.leaveRoom(sid, code, false)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(code)).Str("to_room", string(next)).Msg("switching room")
	return true
}

// Leave is an explicit leave-room; the connection stays open.
func (o *Orchestrator) Leave(sid core.SessionID) bool {
	code, sess, ok := o.Registry.RoomOf(sid)
	if !ok {
		return false
	}
	o.leaveRoom(sid, code, false)
	sess.SetState(core.StateDisconnected)
	return true
}

// OnDisconnect handles a transport drop: snapshot the identity for the
// grace period, tell the room, and forget the connection.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	if code, _, ok := o.Registry.RoomOf(sid); ok {
		o.leaveRoom(sid, code, true)
	}
	if sess, ok := o.Registry.GetSession(sid); ok {
		sess.SetState(core.StateDisconnected)
	}
	o.Registry.Unbind(sid)
}

func (o *Orchestrator) leaveRoom(sid core.SessionID, code domain.RoomCode, capture bool) {
	o.Registry.RemoveRoom(sid)
	room, ok := o.Rooms.Get(code)
	if !ok {
		return
	}
	m, ok := room.Leave(sid)
	if !ok {
		return
	}
	if capture && o.Grace != nil {
		o.Grace.Capture(code, m)
	}
	o.publish(room, "", userEvent{Type: EventUserLeft, Username: m.Username, Color: m.Color})
	o.publish(room, "", userCountEvent{Type: EventUserCount, Count: room.MemberCount()})
	if room.MemberCount() == 0 {
		o.Rooms.RemoveIfEmpty(code, o.roomTTL())
	}
}

// SetUsername renames sid's member in place; the role is untouched.
func (o *Orchestrator) SetUsername(sid core.SessionID, code domain.RoomCode, name string) (domain.Member, error) {
	current, _, ok := o.Registry.RoomOf(sid)
	if !ok || (code != "" && code != current) {
		return domain.Member{}, core.ErrNotInRoom
	}
	room, err := o.room(current)
	if err != nil {
		return domain.Member{}, err
	}
	m, err := room.Rename(sid, name)
	if err != nil {
		return domain.Member{}, fmt.Errorf("set username: %w", err)
	}
	o.publish(room, "", userListEvent{Type: EventUserList, Users: room.MembersSnapshot()})
	return m, nil
}

// WhoAmI reports sid's room and identity, if it is in a room.
func (o *Orchestrator) WhoAmI(sid core.SessionID) (domain.RoomCode, domain.Member, bool) {
	code, _, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", domain.Member{}, false
	}
	room, ok := o.Rooms.Get(code)
	if !ok {
		return "", domain.Member{}, false
	}
	m, ok := room.Member(sid)
	return code, m, ok
}

// RoomInfo backs the HTTP room lookup. A host lookup creates the room and
// remembers the host's name ahead of the socket join.
func (o *Orchestrator) RoomInfo(code domain.RoomCode, isHost bool, hostName string) (core.RoomInfo, error) {
	if !domain.ValidRoomCode(string(code)) {
		return core.RoomInfo{}, core.ErrInvalidRoomCode
	}
	room, ok := o.Rooms.Get(code)
	if !ok {
		if !isHost {
			return core.RoomInfo{}, core.ErrRoomNotFound
		}
		room = o.Rooms.GetOrCreate(code)
		o.Rooms.RemoveIfEmpty(code, o.roomTTL())
	}
	if isHost {
		if !room.HostAvailable(hostName) {
			return core.RoomInfo{}, core.ErrHostTaken
		}
		room.SetHostName(hostName)
	}
	return core.RoomInfo{
		Code:        code,
		MemberCount: room.MemberCount(),
		HasHost:     room.HasHost(),
		CreatedAt:   room.Room().CreatedAt,
	}, nil
}

