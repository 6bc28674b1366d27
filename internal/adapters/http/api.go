package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dkeye/babel/internal/adapters/qr"
	"github.com/dkeye/babel/internal/app/orch"
	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type API struct {
	Orch *orch.Orchestrator
}

type roomInfoResponse struct {
	Room    domain.RoomCode `json:"room"`
	QRCode  string          `json:"qrCode"`
	JoinURL string          `json:"joinUrl"`
	IsHost  bool            `json:"isHost"`
	HasHost bool            `json:"hasHost"`
	Members int             `json:"members"`
}

// RoomInfo answers GET /api/room/:code?host=true&hostName=.
func (a *API) RoomInfo(c *gin.Context) {
	code := domain.RoomCode(c.Param("code"))
	isHost := c.Query("host") == "true"
	sess := sessions.Default(c)

	hostName := c.Query("hostName")
	if isHost && hostName == "" {
		hostName, _ = sess.Get(sessionHostName).(string)
	}

	info, err := a.Orch.RoomInfo(code, isHost, hostName)
	switch {
	case errors.Is(err, core.ErrInvalidRoomCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room code"})
		return
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	case errors.Is(err, core.ErrHostTaken):
		c.JSON(http.StatusForbidden, gin.H{"error": "room already has a host"})
		return
	case err != nil:
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(code)).Msg("room info")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if isHost && hostName != "" {
		sess.Set(sessionHostName, hostName)
		if err := sess.Save(); err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
		}
	}

	joinURL := fmt.Sprintf("%s://%s/room/%s", scheme(c), c.Request.Host, code)
	qrCode, err := qr.DataURL(joinURL, qr.DefaultSize)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(code)).Msg("qr code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, roomInfoResponse{
		Room:    info.Code,
		QRCode:  qrCode,
		JoinURL: joinURL,
		IsHost:  isHost,
		HasHost: info.HasHost,
		Members: info.MemberCount,
	})
}

// NewRoom allocates a room and sends the caller to it as host.
func (a *API) NewRoom(c *gin.Context) {
	code, err := a.Orch.CreateRoom()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("allocate room")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no free room code"})
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/room/%s?host=true", code))
}

func (a *API) Rooms(c *gin.Context) {
	c.JSON(http.StatusOK, a.Orch.Rooms.List())
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": a.Orch.Registry.Count(),
		"rooms":       a.Orch.Rooms.Len(),
	})
}

func scheme(c *gin.Context) string {
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		return p
	}
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}
