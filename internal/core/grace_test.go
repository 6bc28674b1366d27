package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/babel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func guest(name string, color domain.Color) domain.Member {
	return domain.Member{ConnectionID: "c-" + name, Identity: domain.Identity{Username: name, Color: color, Role: domain.RoleGuest}}
}

func TestGrace_RestoreWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := NewGraceRegistry(5*time.Minute, WithClock(clock.Now))

	m := guest("Guest 1", "#4ECDC4")
	g.Capture("482913", m)
	clock.Advance(4 * time.Minute)

	p, ok := g.TryRestore("482913", "Guest 1")
	require.True(t, ok)
	assert.Equal(t, m.Identity, p.Identity)
	assert.Equal(t, domain.RoomCode("482913"), p.RoomCode)

	_, ok = g.TryRestore("482913", "Guest 1")
	assert.False(t, ok, "snapshot is consumed on restore")
}

func TestGrace_ExpiredSnapshotIgnored(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := NewGraceRegistry(5*time.Minute, WithClock(clock.Now))

	g.Capture("482913", guest("Guest 1", "#4ECDC4"))
	clock.Advance(5 * time.Minute)

	_, ok := g.TryRestore("482913", "Guest 1")
	assert.False(t, ok)
	assert.Zero(t, g.Len())
}

func TestGrace_ScopedPerRoom(t *testing.T) {
	g := NewGraceRegistry(time.Minute)
	g.Capture("111111", guest("Sam", "#FF6B6B"))
	g.Capture("222222", guest("Sam", "#27AE60"))

	p, ok := g.TryRestore("222222", "Sam")
	require.True(t, ok)
	assert.Equal(t, domain.Color("#27AE60"), p.Color)

	p, ok = g.TryRestore("111111", "Sam")
	require.True(t, ok)
	assert.Equal(t, domain.Color("#FF6B6B"), p.Color)

	_, ok = g.TryRestore("333333", "Sam")
	assert.False(t, ok)
}

func TestGrace_IgnoresEmptyNames(t *testing.T) {
	g := NewGraceRegistry(time.Minute)
	g.Capture("111111", guest("", "#FF6B6B"))
	assert.Zero(t, g.Len())
	_, ok := g.TryRestore("111111", "")
	assert.False(t, ok)
}

func TestGrace_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := NewGraceRegistry(5*time.Minute, WithClock(clock.Now))

	g.Capture("111111", guest("old", "#FF6B6B"))
	clock.Advance(3 * time.Minute)
	g.Capture("111111", guest("new", "#27AE60"))
	clock.Advance(3 * time.Minute)

	assert.Equal(t, 1, g.Sweep())
	assert.Equal(t, 1, g.Len())
	_, ok := g.TryRestore("111111", "new")
	assert.True(t, ok)
}

func TestGrace_RunStopsOnCancel(t *testing.T) {
	g := NewGraceRegistry(10 * time.Millisecond)
	g.Capture("111111", guest("a", "#FF6B6B"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return g.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestGrace_ReservedColors(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := NewGraceRegistry(5*time.Minute, WithClock(clock.Now))
	assert.Empty(t, g.ReservedColors("482913"))

	g.Capture("482913", guest("Guest 1", "#FF6B6B"))
	clock.Advance(3 * time.Minute)
	g.Capture("482913", guest("Guest 2", "#4ECDC4"))
	g.Capture("111111", guest("Guest 1", "#96CEB4"))

	assert.Equal(t, map[domain.Color]bool{"#FF6B6B": true, "#4ECDC4": true}, g.ReservedColors("482913"))

	clock.Advance(3 * time.Minute)
	assert.Equal(t, map[domain.Color]bool{"#4ECDC4": true}, g.ReservedColors("482913"))
}

func TestGrace_ReturnKeepsDisconnectTime(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := NewGraceRegistry(5*time.Minute, WithClock(clock.Now))
	g.Capture("482913", guest("Guest 1", "#FF6B6B"))

	p, ok := g.TryRestore("482913", "Guest 1")
	require.True(t, ok)
	g.Return(p)

	clock.Advance(4 * time.Minute)
	again, ok := g.TryRestore("482913", "Guest 1")
	require.True(t, ok)
	assert.Equal(t, p, again)

	g.Return(again)
	clock.Advance(time.Minute)
	_, ok = g.TryRestore("482913", "Guest 1")
	assert.False(t, ok, "returned snapshot still expires on its original clock")
}
