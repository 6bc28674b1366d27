package core

import (
	"sync"
	"time"

	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

type memberEntry struct {
	member  domain.Member
	session MemberSession
}

// RoomOptions configures rooms built by a store.
type RoomOptions struct {
	HistoryLimit int
	Resolver     *IdentityResolver
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room     domain.Room
	resolver *IdentityResolver

	mu      sync.RWMutex
	state   roomState
	history *History
	closed  bool
}

func NewRoomService(room domain.Room, opts RoomOptions) RoomService {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewIdentityResolver()
	}
	return &roomImpl{
		room:     room,
		resolver: resolver,
		state:    roomState{members: make(map[SessionID]*memberEntry)},
		history:  NewHistory(opts.HistoryLimit),
	}
}

func (r *roomImpl) Room() domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.state.members)
}

func (r *roomImpl) Member(sid SessionID) (domain.Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.state.members[sid]
	if !ok {
		return domain.Member{}, false
	}
	return e.member, true
}

func (r *roomImpl) HasHost() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.hostSID != ""
}

// HostAvailable reports whether a host join under name would get the role.
func (r *roomImpl) HostAvailable(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.hostSID == "" || (name != "" && name == r.state.hostName)
}

// SetHostName remembers the host's name ahead of the host's socket joining.
// Ignored while a host is live.
func (r *roomImpl) SetHostName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.hostSID == "" && name != "" {
		r.state.hostName = name
	}
}

func (r *roomImpl) Join(sid SessionID, ms MemberSession, req JoinRequest) (JoinOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return JoinOutcome{}, ErrRoomClosed
	}
	if _, ok := r.state.members[sid]; ok {
		r.removeLocked(sid)
	}

	res := r.resolver.Resolve(&r.state, sid, req)
	out := JoinOutcome{Restored: req.Restored != nil}

	if res.Displace != "" {
		if prev, ok := r.state.members[res.Displace]; ok {
			prev.member.Role = domain.RoleGuest
			prev.member.Color = r.resolver.pickColor(r.state.usedColors(), nil, "")
			demoted := prev.member
			out.Displaced = &demoted
			log.Warn().Str("module", "core.room").Str("room", string(r.room.Code)).Str("sid", string(res.Displace)).Msg("stale host demoted")
		}
	}
	if res.Identity.Role == domain.RoleHost {
		r.state.hostSID = sid
		r.state.hostName = res.Identity.Username
	}

	m := domain.Member{ConnectionID: string(sid), Identity: res.Identity}
	r.state.members[sid] = &memberEntry{member: m, session: ms}
	out.Member = m

	log.Info().
		Str("module", "core.room").
		Str("room", string(r.room.Code)).
		Str("sid", string(sid)).
		Str("username", m.Username).
		Str("role", string(m.Role)).
		Bool("restored", out.Restored).
		Msg("member added")
	return out, nil
}

func (r *roomImpl) Leave(sid SessionID) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.removeLocked(sid)
	if ok {
		log.Info().Str("module", "core.room").Str("room", string(r.room.Code)).Str("sid", string(sid)).Msg("member removed")
	}
	return m, ok
}

// removeLocked drops sid; the host name survives so the host can come back.
func (r *roomImpl) removeLocked(sid SessionID) (domain.Member, bool) {
	e, ok := r.state.members[sid]
	if !ok {
		return domain.Member{}, false
	}
	delete(r.state.members, sid)
	if r.state.hostSID == sid {
		r.state.hostSID = ""
	}
	return e.member, true
}

func (r *roomImpl) Rename(sid SessionID, name string) (domain.Member, error) {
	name, err := domain.ValidateUsername(name)
	if err != nil {
		return domain.Member{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.state.members[sid]
	if !ok {
		return domain.Member{}, ErrNotInRoom
	}
	e.member.Username = name
	if r.state.hostSID == sid {
		r.state.hostName = name
	}
	return e.member, nil
}

// Post appends msg to history and fans it out to every member, sender
// included. Both happen under the write lock so delivery order matches
// history order.
func (r *roomImpl) Post(msg domain.Message, encode EncodeFunc) (domain.Message, PublishResult, error) {
	frame, err := encode(msg)
	if err != nil {
		return domain.Message{}, PublishResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.history.Append(msg) {
		log.Debug().Str("module", "core.room").Str("room", string(r.room.Code)).Msg("history full, oldest evicted")
	}
	return msg, r.fanOutLocked("", frame), nil
}

func (r *roomImpl) Recent(limit int) []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Recent(limit)
}

func (r *roomImpl) HistoryLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.Len()
}

// Broadcast sends data to every member except the given one ("" for none).
func (r *roomImpl) Broadcast(except SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fanOutLocked(except, data)
}

func (r *roomImpl) fanOutLocked(except SessionID, data Frame) PublishResult {
	res := PublishResult{}
	for sid, e := range r.state.members {
		if sid == except || e.session == nil {
			continue
		}
		if err := e.session.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, e.session)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.Code)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.state.members))
	for _, e := range r.state.members {
		out = append(out, MemberDTO{Username: e.member.Username, Color: e.member.Color, IsHost: e.member.IsHost()})
	}
	return out
}

func (r *roomImpl) TryClose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.state.members) == 0 {
		r.closed = true
	}
	return r.closed
}
