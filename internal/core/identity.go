package core

import (
	"fmt"
	"math/rand/v2"

	"github.com/dkeye/babel/internal/domain"
)

// ColorPicker returns a candidate guest color.
type ColorPicker func() domain.Color

func RandomPaletteColor() domain.Color {
	return domain.GuestPalette[rand.IntN(len(domain.GuestPalette))]
}

// roomState is the part of a room the resolver reads and mutates.
// Callers hold the room's write lock.
type roomState struct {
	hostSID  SessionID
	hostName string
	guestSeq int
	members  map[SessionID]*memberEntry
}

func (s *roomState) usedColors() map[domain.Color]bool {
	used := make(map[domain.Color]bool, len(s.members))
	for _, e := range s.members {
		used[e.member.Color] = true
	}
	return used
}

// Resolution is the resolver's answer for one join.
type Resolution struct {
	Identity domain.Identity
	// Displace is the live host connection that loses the role to this join.
	Displace SessionID
}

// IdentityResolver decides username, color and role for a join.
// It never fails: every request ends with some valid identity.
type IdentityResolver struct {
	Pick ColorPicker
	// MaxAttempts bounds random color retries before falling back to a palette scan.
	MaxAttempts int
}

func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{Pick: RandomPaletteColor, MaxAttempts: 4 * len(domain.GuestPalette)}
}

func (ir *IdentityResolver) Resolve(st *roomState, sid SessionID, req JoinRequest) Resolution {
	name, color, role := req.Name, req.Color, req.Role
	if p := req.Restored; p != nil {
		name, color, role = p.Username, p.Color, p.Role
	}

	if role == domain.RoleHost {
		live := st.hostSID != "" && st.hostSID != sid
		if !live || (name != "" && name == st.hostName) {
			hostName := name
			if hostName == "" || hostName == domain.GuestPlaceholder {
				hostName = st.hostName
			}
			if hostName == "" {
				hostName = domain.DefaultHostName
			}
			res := Resolution{Identity: domain.Identity{
				Username: hostName,
				Color:    domain.HostColor,
				Role:     domain.RoleHost,
			}}
			if live {
				res.Displace = st.hostSID
			}
			return res
		}
		// another host is live: fall through and join as guest
	}

	if name == "" || name == domain.GuestPlaceholder {
		st.guestSeq++
		name = fmt.Sprintf("Guest %d", st.guestSeq)
	}
	return Resolution{Identity: domain.Identity{
		Username: name,
		Color:    ir.pickColor(st.usedColors(), req.Reserved, color),
		Role:     domain.RoleGuest,
	}}
}

// pickColor prefers the requested color, then random palette picks, then a
// palette scan. Reserved colors are skipped while the palette has other
// free colors. With every palette color taken it returns a duplicate.
func (ir *IdentityResolver) pickColor(used, reserved map[domain.Color]bool, requested domain.Color) domain.Color {
	if requested != "" && requested != domain.HostColor && !used[requested] {
		return requested
	}
	taken := used
	if len(reserved) > 0 {
		taken = make(map[domain.Color]bool, len(used)+len(reserved))
		for c := range used {
			taken[c] = true
		}
		for c := range reserved {
			taken[c] = true
		}
	}
	pick := ir.Pick
	if pick == nil {
		pick = RandomPaletteColor
	}
	attempts := ir.MaxAttempts
	if attempts <= 0 {
		attempts = len(domain.GuestPalette)
	}
	var c domain.Color
	for i := 0; i < attempts; i++ {
		c = pick()
		if c != domain.HostColor && !taken[c] {
			return c
		}
	}
	for _, p := range domain.GuestPalette {
		if !taken[p] {
			return p
		}
	}
	for _, p := range domain.GuestPalette {
		if !used[p] {
			return p
		}
	}
	if c == domain.HostColor || c == "" {
		c = domain.GuestPalette[0]
	}
	return c
}
