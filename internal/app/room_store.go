package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	gonanoid "github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog/log"
)

const maxCodeAttempts = 64

var _ core.RoomStore = (*RoomStore)(nil)

// RoomStore maps room codes to live rooms. Its lock only guards the map;
// each room serializes its own mutations.
type RoomStore struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomCode]core.RoomService
	opts    core.RoomOptions
	newCode func() string
}

type StoreOption func(*RoomStore)

// WithCodeGenerator replaces the random 6-digit code source.
func WithCodeGenerator(gen func() string) StoreOption {
	return func(s *RoomStore) { s.newCode = gen }
}

func NewRoomStore(opts core.RoomOptions, storeOpts ...StoreOption) *RoomStore {
	s := &RoomStore{
		rooms: make(map[domain.RoomCode]core.RoomService),
		opts:  opts,
	}
	for _, o := range storeOpts {
		o(s)
	}
	if s.newCode == nil {
		gen, err := gonanoid.CustomASCII("0123456789", domain.RoomCodeLen)
		if err != nil {
			// constant alphabet and length; only a library bug gets here
			panic(fmt.Sprintf("room code generator: %v", err))
		}
		s.newCode = gen
	}
	return s
}

func (s *RoomStore) GetOrCreate(code domain.RoomCode) core.RoomService {
	s.mu.RLock()
	room, ok := s.rooms[code]
	s.mu.RUnlock()
	if ok {
		return room
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.rooms[code]; ok {
		return room
	}
	return s.createLocked(code)
}

func (s *RoomStore) Get(code domain.RoomCode) (core.RoomService, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

// Create allocates a room under a fresh unused code.
func (s *RoomStore) Create() (core.RoomService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < maxCodeAttempts; i++ {
		code := domain.RoomCode(s.newCode())
		if !domain.ValidRoomCode(string(code)) {
			continue
		}
		if _, taken := s.rooms[code]; taken {
			continue
		}
		return s.createLocked(code), nil
	}
	return nil, core.ErrNoFreeCode
}

func (s *RoomStore) createLocked(code domain.RoomCode) core.RoomService {
	room := core.NewRoomService(domain.Room{Code: code, CreatedAt: time.Now()}, s.opts)
	s.rooms[code] = room
	log.Info().Str("module", "app.rooms").Str("room", string(code)).Int("rooms", len(s.rooms)).Msg("room created")
	return room
}

// RemoveIfEmpty deletes the room after the delay unless someone is in it by then.
// Nothing cancels the timer; the emptiness check at fire time makes a
// repopulated room a no-op.
func (s *RoomStore) RemoveIfEmpty(code domain.RoomCode, after time.Duration) {
	time.AfterFunc(after, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		room, ok := s.rooms[code]
		if !ok || !room.TryClose() {
			return
		}
		delete(s.rooms, code)
		log.Info().Str("module", "app.rooms").Str("room", string(code)).Msg("empty room removed")
	})
}

func (s *RoomStore) List() []core.RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(s.rooms))
	for code, r := range s.rooms {
		out = append(out, core.RoomInfo{
			Code:        code,
			MemberCount: r.MemberCount(),
			HasHost:     r.HasHost(),
			CreatedAt:   r.Room().CreatedAt,
		})
	}
	return out
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
