package signal

import (
	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(cl *client, data []byte) {
	type renamePayload struct {
		Room string `json:"room"`
		Name string `json:"name"`
	}
	var p renamePayload
	if !ctl.decode(cl, data, &p) {
		return
	}

	m, err := ctl.Orch.SetUsername(cl.sid, domain.RoomCode(p.Room), p.Name)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("rename rejected")
		ctl.sendError(cl.conn, clientError(err))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(cl.sid)).Str("name", m.Username).Msg("rename")
}

func (ctl *SignalWSController) handleWhoAmI(cl *client) {
	resp := struct {
		Type     string          `json:"type"`
		SID      core.SessionID  `json:"sid"`
		Room     domain.RoomCode `json:"room,omitempty"`
		Username string          `json:"username,omitempty"`
		Color    domain.Color    `json:"color,omitempty"`
		IsHost   bool            `json:"isHost,omitempty"`
	}{
		Type: "whoami",
		SID:  cl.sid,
	}
	if code, m, ok := ctl.Orch.WhoAmI(cl.sid); ok {
		resp.Room = code
		resp.Username = m.Username
		resp.Color = m.Color
		resp.IsHost = m.IsHost()
	}
	ctl.sendJSON(cl.conn, resp)
}
