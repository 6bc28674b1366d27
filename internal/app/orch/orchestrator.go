package orch

import (
	"context"
	"time"

	"github.com/dkeye/babel/internal/app"
	"github.com/dkeye/babel/internal/app/translate"
	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRoomTTL       = 2 * time.Minute
	DefaultMaxMessageLen = 2000
)

// Enricher is the translation pipeline as seen by the orchestrator.
type Enricher interface {
	Enrich(ctx context.Context, text string) translate.Enrichment
	Probe(ctx context.Context, text, target string) (string, time.Duration, error)
}

type Options struct {
	// RoomTTL is how long an empty room lingers before removal.
	RoomTTL       time.Duration
	RecentLimit   int
	MaxMessageLen int
}

// Orchestrator drives the connection lifecycle across the registry,
// the room store and the grace registry.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomStore
	Grace    *core.GraceRegistry
	Policy   app.Policy
	Enricher Enricher
	Options  Options

	now func() time.Time
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}

func (o *Orchestrator) roomTTL() time.Duration {
	if o.Options.RoomTTL > 0 {
		return o.Options.RoomTTL
	}
	return DefaultRoomTTL
}

func (o *Orchestrator) recentLimit() int {
	if o.Options.RecentLimit > 0 {
		return o.Options.RecentLimit
	}
	return core.DefaultRecentLimit
}

func (o *Orchestrator) maxMessageLen() int {
	if o.Options.MaxMessageLen > 0 {
		return o.Options.MaxMessageLen
	}
	return DefaultMaxMessageLen
}

// Connect registers a new transport session in the Disconnected state.
func (o *Orchestrator) Connect(sess core.MemberSession, cancel context.CancelFunc) {
	sess.SetState(core.StateDisconnected)
	o.Registry.Bind(sess.ID(), sess, cancel)
}

// publish fans a frame out and applies the backpressure policy to whoever refused it.
func (o *Orchestrator) publish(room core.RoomService, except core.SessionID, v any) {
	frame, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode broadcast")
		return
	}
	o.handleDropped(room, room.Broadcast(except, frame))
}

func (o *Orchestrator) handleDropped(room core.RoomService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			o.KickBySID(slow.ID())
		case app.NoAction:
		}
	}
}

// send delivers a frame to one session; failures are logged, not returned.
func (o *Orchestrator) send(sess core.MemberSession, v any) {
	frame, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode reply")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID())).Msg("reply dropped")
	}
}

// KickBySID tears down the transport; the adapter's read loop then runs
// OnDisconnect, which captures the grace snapshot.
func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.Registry.Cancel(sid)
	if sess, ok := o.Registry.GetSession(sid); ok {
		sess.Signal().Close()
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("kicked")
}

func (o *Orchestrator) room(code domain.RoomCode) (core.RoomService, error) {
	room, ok := o.Rooms.Get(code)
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	return room, nil
}
