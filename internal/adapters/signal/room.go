package signal

import (
	"github.com/dkeye/babel/internal/app/orch"
	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) createRoom(cl *client) {
	code, err := ctl.Orch.CreateRoom()
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("create room")
		ctl.sendError(cl.conn, clientError(err))
		return
	}
	ctl.sendJSON(cl.conn, struct {
		Type string          `json:"type"`
		Room domain.RoomCode `json:"room"`
	}{
		Type: "room-created",
		Room: code,
	})
}

func (ctl *SignalWSController) handleJoin(cl *client, data []byte) {
	type joinPayload struct {
		Room   string `json:"room"`
		IsHost bool   `json:"isHost"`
		Name   string `json:"name,omitempty"`
		Color  string `json:"color,omitempty"`
	}
	var p joinPayload
	if !ctl.decode(cl, data, &p) {
		return
	}
	name := p.Name
	if p.IsHost && name == "" {
		name = cl.hostName
	}

	log.Info().Str("module", "signal").Str("sid", string(cl.sid)).Str("room", p.Room).Bool("host", p.IsHost).Msg("join")
	// room-joined and the room broadcasts are sent by the orchestrator.
	if _, err := ctl.Orch.Join(cl.sid, orch.JoinRequest{
		Room:   domain.RoomCode(p.Room),
		IsHost: p.IsHost,
		Name:   name,
		Color:  domain.Color(p.Color),
	}); err != nil {
		ctl.sendError(cl.conn, clientError(err))
	}
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(cl *client) {
	log.Info().Str("module", "signal").Str("sid", string(cl.sid)).Msg("leave")
	ctl.Orch.Leave(cl.sid)
	ctl.sendJSON(cl.conn, struct {
		Type string `json:"type"`
	}{
		Type: "left",
	})
}
