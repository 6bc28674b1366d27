// Package coretest provides in-memory transport doubles for room tests.
package coretest

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
)

var ErrFull = errors.New("coretest: send buffer full")

// Conn is a core.SignalConnection that records frames in memory.
// With Fail set every TrySend is refused, like a stalled client.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	Fail   bool
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("coretest: closed")
	}
	if c.Fail {
		return ErrFull
	}
	c.frames = append(c.frames, append(core.Frame(nil), f...))
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) Frames() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Frame(nil), c.frames...)
}

// Events decodes every recorded frame as a JSON object.
func (c *Conn) Events() []map[string]any {
	var out []map[string]any
	for _, f := range c.Frames() {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// OfType returns the decoded events whose "type" equals typ.
func (c *Conn) OfType(typ string) []map[string]any {
	var out []map[string]any
	for _, e := range c.Events() {
		if e["type"] == typ {
			out = append(out, e)
		}
	}
	return out
}

// Session wraps a fresh Conn into a core.MemberSession.
func Session(sid core.SessionID) (core.MemberSession, *Conn) {
	c := &Conn{}
	return core.NewMemberSession(sid, c), c
}

// Palette returns a ColorPicker cycling through colors in order.
func Palette(colors ...domain.Color) core.ColorPicker {
	var mu sync.Mutex
	i := 0
	return func() domain.Color {
		mu.Lock()
		defer mu.Unlock()
		c := colors[i%len(colors)]
		i++
		return c
	}
}
