package core_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/core/coretest"
	"github.com/dkeye/babel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoom(t *testing.T) core.RoomService {
	t.Helper()
	return core.NewRoomService(domain.Room{Code: "482913"}, core.RoomOptions{})
}

func encodeJSON(m domain.Message) (core.Frame, error) { return json.Marshal(m) }

func TestRoom_SingleHostUnderConcurrentJoins(t *testing.T) {
	room := newRoom(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := core.SessionID(fmt.Sprintf("s%d", i))
			ms, _ := coretest.Session(sid)
			_, err := room.Join(sid, ms, core.JoinRequest{Role: domain.RoleHost, Name: fmt.Sprintf("user%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	hosts := 0
	for _, m := range room.MembersSnapshot() {
		if m.IsHost {
			hosts++
			assert.Equal(t, domain.HostColor, m.Color)
		} else {
			assert.NotEqual(t, domain.HostColor, m.Color)
		}
	}
	assert.Equal(t, 1, hosts)
	assert.Equal(t, 50, room.MemberCount())
}

func TestRoom_HostLeavesAndRehosts(t *testing.T) {
	room := newRoom(t)
	h1, _ := coretest.Session("h1")
	_, err := room.Join("h1", h1, core.JoinRequest{Role: domain.RoleHost, Name: "Alice"})
	require.NoError(t, err)

	_, ok := room.Leave("h1")
	require.True(t, ok)
	assert.False(t, room.HasHost())
	assert.True(t, room.HostAvailable("Bob"))

	h2, _ := coretest.Session("h2")
	out, err := room.Join("h2", h2, core.JoinRequest{Role: domain.RoleHost, Name: "Alice"})
	require.NoError(t, err)
	assert.True(t, out.Member.IsHost())
}

func TestRoom_RehostDemotesStaleHost(t *testing.T) {
	room := newRoom(t)
	old, _ := coretest.Session("old")
	_, err := room.Join("old", old, core.JoinRequest{Role: domain.RoleHost, Name: "Alice"})
	require.NoError(t, err)

	assert.False(t, room.HostAvailable("Bob"))
	assert.True(t, room.HostAvailable("Alice"))

	fresh, _ := coretest.Session("new")
	out, err := room.Join("new", fresh, core.JoinRequest{Role: domain.RoleHost, Name: "Alice"})
	require.NoError(t, err)
	require.NotNil(t, out.Displaced)
	assert.Equal(t, domain.RoleGuest, out.Displaced.Role)
	assert.NotEqual(t, domain.HostColor, out.Displaced.Color)

	prev, ok := room.Member("old")
	require.True(t, ok)
	assert.False(t, prev.IsHost())
	cur, _ := room.Member("new")
	assert.True(t, cur.IsHost())
}

func TestRoom_SetHostName(t *testing.T) {
	room := newRoom(t)
	room.SetHostName("Alice")

	ms, _ := coretest.Session("h")
	out, err := room.Join("h", ms, core.JoinRequest{Role: domain.RoleHost})
	require.NoError(t, err)
	assert.Equal(t, "Alice", out.Member.Username)

	room.SetHostName("Mallory")
	assert.True(t, room.HostAvailable("Alice"))
	assert.False(t, room.HostAvailable("Mallory"))
}

func TestRoom_RejoinSameConnectionReplacesMember(t *testing.T) {
	room := newRoom(t)
	ms, _ := coretest.Session("s")
	_, err := room.Join("s", ms, core.JoinRequest{Role: domain.RoleGuest, Name: "Yuki", Color: "#9B59B6"})
	require.NoError(t, err)
	out, err := room.Join("s", ms, core.JoinRequest{Role: domain.RoleGuest, Name: "Yuki", Color: "#9B59B6"})
	require.NoError(t, err)

	assert.Equal(t, 1, room.MemberCount())
	assert.Equal(t, domain.Color("#9B59B6"), out.Member.Color)
}

func TestRoom_PostBoundsHistoryAndDeliversToAll(t *testing.T) {
	room := newRoom(t)
	a, connA := coretest.Session("a")
	b, connB := coretest.Session("b")
	_, _ = room.Join("a", a, core.JoinRequest{Role: domain.RoleHost, Name: "Alice"})
	_, _ = room.Join("b", b, core.JoinRequest{Role: domain.RoleGuest})

	for i := 1; i <= 101; i++ {
		_, res, err := room.Post(domain.Message{ID: fmt.Sprint(i), Username: "Alice", Text: fmt.Sprint(i)}, encodeJSON)
		require.NoError(t, err)
		assert.Equal(t, 2, res.SendTo)
	}

	assert.Equal(t, core.DefaultHistoryLimit, room.HistoryLen())
	all := room.Recent(0)
	assert.Equal(t, "2", all[0].ID)
	assert.Equal(t, "101", all[len(all)-1].ID)
	assert.Len(t, room.Recent(core.DefaultRecentLimit), core.DefaultRecentLimit)

	assert.Len(t, connA.Frames(), 101)
	assert.Len(t, connB.Frames(), 101)
}

func TestRoom_DeadMemberDoesNotBlockOthers(t *testing.T) {
	room := newRoom(t)
	a, connA := coretest.Session("a")
	b, connB := coretest.Session("b")
	c, connC := coretest.Session("c")
	connB.Fail = true
	_, _ = room.Join("a", a, core.JoinRequest{Role: domain.RoleGuest})
	_, _ = room.Join("b", b, core.JoinRequest{Role: domain.RoleGuest})
	_, _ = room.Join("c", c, core.JoinRequest{Role: domain.RoleGuest})

	res := room.Broadcast("", core.Frame(`{"type":"x"}`))

	assert.Equal(t, 2, res.SendTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, core.SessionID("b"), res.Dropped[0].ID())
	assert.Len(t, connA.Frames(), 1)
	assert.Len(t, connC.Frames(), 1)
	assert.Empty(t, connB.Frames())
}

func TestRoom_BroadcastExcept(t *testing.T) {
	room := newRoom(t)
	a, connA := coretest.Session("a")
	b, connB := coretest.Session("b")
	_, _ = room.Join("a", a, core.JoinRequest{Role: domain.RoleGuest})
	_, _ = room.Join("b", b, core.JoinRequest{Role: domain.RoleGuest})

	room.Broadcast("a", core.Frame(`{}`))
	assert.Empty(t, connA.Frames())
	assert.Len(t, connB.Frames(), 1)
}

func TestRoom_Rename(t *testing.T) {
	room := newRoom(t)
	h, _ := coretest.Session("h")
	_, _ = room.Join("h", h, core.JoinRequest{Role: domain.RoleHost, Name: "Alice"})

	m, err := room.Rename("h", "  Alicia ")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", m.Username)
	assert.True(t, m.IsHost())
	assert.True(t, room.HostAvailable("Alicia"))

	_, err = room.Rename("h", "")
	assert.ErrorIs(t, err, domain.ErrUsernameEmpty)
	_, err = room.Rename("nobody", "x")
	assert.ErrorIs(t, err, core.ErrNotInRoom)
}

func TestRoom_TryClose(t *testing.T) {
	room := newRoom(t)
	ms, _ := coretest.Session("a")
	_, _ = room.Join("a", ms, core.JoinRequest{Role: domain.RoleGuest})

	assert.False(t, room.TryClose())
	room.Leave("a")
	assert.True(t, room.TryClose())

	_, err := room.Join("a", ms, core.JoinRequest{Role: domain.RoleGuest})
	assert.ErrorIs(t, err, core.ErrRoomClosed)
}

func TestRoom_UniqueColorsForPaletteSizedRoom(t *testing.T) {
	room := newRoom(t)
	for i := range domain.GuestPalette {
		sid := core.SessionID(fmt.Sprint(i))
		ms, _ := coretest.Session(sid)
		_, err := room.Join(sid, ms, core.JoinRequest{Role: domain.RoleGuest})
		require.NoError(t, err)
	}
	seen := map[domain.Color]bool{}
	for _, m := range room.MembersSnapshot() {
		assert.False(t, seen[m.Color], "duplicate color %s", m.Color)
		seen[m.Color] = true
	}
}
