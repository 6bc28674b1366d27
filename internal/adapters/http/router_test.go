package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/babel/internal/app"
	"github.com/dkeye/babel/internal/app/orch"
	"github.com/dkeye/babel/internal/config"
	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/core/coretest"
	"github.com/dkeye/babel/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv    *httptest.Server
	orch   *orch.Orchestrator
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>babel</html>"), 0o600))
	cfg := &config.Config{Mode: "test", StaticPath: static, Secret: "test-secret", PingPeriod: time.Second}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomStore(core.RoomOptions{}),
		Grace:    core.NewGraceRegistry(time.Minute),
		Policy:   app.SimplePolicy{},
		Options:  orch.Options{RoomTTL: time.Hour},
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(SetupRouter(ctx, cfg, o))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, orch: o, client: client}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestRoomInfo_StatusCodes(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, "/api/room/12ab")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.get(t, "/api/room/482913")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := e.get(t, "/api/room/482913?host=true&hostName=Alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info roomInfoResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "482913", string(info.Room))
	assert.True(t, info.IsHost)
	assert.False(t, info.HasHost)
	assert.True(t, strings.HasPrefix(info.QRCode, "data:image/png;base64,"))
	assert.True(t, strings.HasSuffix(info.JoinURL, "/room/482913"))

	sess, _ := coretest.Session("alice")
	e.orch.Connect(sess, nil)
	_, err := e.orch.Join("alice", orch.JoinRequest{Room: "482913", IsHost: true})
	require.NoError(t, err)

	resp, _ = e.get(t, "/api/room/482913?host=true&hostName=Mallory")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = e.get(t, "/api/room/482913")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &info))
	assert.False(t, info.IsHost)
	assert.True(t, info.HasHost)
	assert.Equal(t, 1, info.Members)
}

func TestNewRoomRedirect(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, "/room")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/room/"))
	assert.True(t, strings.HasSuffix(loc, "?host=true"))

	code := strings.TrimSuffix(strings.TrimPrefix(loc, "/room/"), "?host=true")
	_, ok := e.orch.Rooms.Get(domain.RoomCode(code))
	assert.True(t, ok)

	resp, body := e.get(t, loc)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "babel")
}

func TestRoomsAndHealth(t *testing.T) {
	e := newTestEnv(t)
	e.get(t, "/api/room/111111?host=true")

	resp, body := e.get(t, "/api/rooms")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rooms []map[string]any
	require.NoError(t, json.Unmarshal(body, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "111111", rooms[0]["room"])
	assert.Equal(t, float64(0), rooms[0]["client_count"])

	resp, body = e.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestHostNameRememberedAcrossSocket(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.get(t, "/api/room/222222?host=true&hostName=Alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/ws"
	dialer := websocket.Dialer{Jar: e.client.Jar, HandshakeTimeout: 2 * time.Second}
	ws, _, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join-room", "room": "222222", "isHost": true}))
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev map[string]any
		require.NoError(t, ws.ReadJSON(&ev))
		if ev["type"] == "room-joined" {
			assert.Equal(t, "Alice", ev["username"])
			assert.Equal(t, true, ev["isHost"])
			return
		}
	}
}
