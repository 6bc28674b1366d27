package core

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultGracePeriod = 5 * time.Minute

type graceKey struct {
	room     domain.RoomCode
	username string
}

// GraceRegistry remembers identities of members that just dropped off,
// scoped per room, so a reconnect within the grace period resumes them.
type GraceRegistry struct {
	mu      sync.Mutex
	period  time.Duration
	now     func() time.Time
	pending map[graceKey]domain.PendingIdentity
}

type GraceOption func(*GraceRegistry)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) GraceOption {
	return func(g *GraceRegistry) { g.now = now }
}

func NewGraceRegistry(period time.Duration, opts ...GraceOption) *GraceRegistry {
	if period <= 0 {
		period = DefaultGracePeriod
	}
	g := &GraceRegistry{
		period:  period,
		now:     time.Now,
		pending: make(map[graceKey]domain.PendingIdentity),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GraceRegistry) Period() time.Duration { return g.period }

// Capture snapshots m as it was at disconnect. A newer snapshot for the
// same room and username replaces the older one.
func (g *GraceRegistry) Capture(code domain.RoomCode, m domain.Member) {
	if m.Username == "" {
		return
	}
	g.mu.Lock()
	g.pending[graceKey{code, m.Username}] = domain.PendingIdentity{
		Identity:       m.Identity,
		RoomCode:       code,
		DisconnectedAt: g.now(),
	}
	g.mu.Unlock()
	log.Debug().Str("module", "core.grace").Str("room", string(code)).Str("username", m.Username).Msg("identity captured")
}

// TryRestore consumes the snapshot for code+username if it is still fresh.
func (g *GraceRegistry) TryRestore(code domain.RoomCode, username string) (domain.PendingIdentity, bool) {
	if username == "" {
		return domain.PendingIdentity{}, false
	}
	key := graceKey{code, username}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[key]
	if !ok {
		return domain.PendingIdentity{}, false
	}
	delete(g.pending, key)
	if g.now().Sub(p.DisconnectedAt) >= g.period {
		return domain.PendingIdentity{}, false
	}
	return p, true
}

// Return puts back a snapshot taken by TryRestore whose join then failed.
// It keeps its original disconnect time.
func (g *GraceRegistry) Return(p domain.PendingIdentity) {
	if p.Username == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	key := graceKey{p.RoomCode, p.Username}
	if _, ok := g.pending[key]; !ok {
		g.pending[key] = p
	}
}

// ReservedColors lists the colors of code's unexpired snapshots.
func (g *GraceRegistry) ReservedColors(code domain.RoomCode) map[domain.Color]bool {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	var out map[domain.Color]bool
	for k, p := range g.pending {
		if k.room != code || now.Sub(p.DisconnectedAt) >= g.period {
			continue
		}
		if out == nil {
			out = make(map[domain.Color]bool)
		}
		out[p.Color] = true
	}
	return out
}

// Sweep drops every snapshot older than the grace period.
func (g *GraceRegistry) Sweep() int {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for k, p := range g.pending {
		if now.Sub(p.DisconnectedAt) >= g.period {
			delete(g.pending, k)
			n++
		}
	}
	return n
}

// Run sweeps once per grace period until ctx is done.
func (g *GraceRegistry) Run(ctx context.Context) {
	ticker := time.NewTicker(g.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "core.grace").Msg("sweeper stopped")
			return
		case <-ticker.C:
			if n := g.Sweep(); n > 0 {
				log.Info().Str("module", "core.grace").Int("evicted", n).Msg("expired identities swept")
			}
		}
	}
}

func (g *GraceRegistry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}
