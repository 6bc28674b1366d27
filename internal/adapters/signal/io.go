package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

// Inbound event names.
const (
	EventCreateRoom           = "create-room"
	EventJoinRoom             = "join-room"
	EventChatMessage          = "chat-message"
	EventSetUsername          = "set-username"
	EventLeaveRoom            = "leave-room"
	EventWhoAmI               = "whoami"
	EventPing                 = "ping"
	EventTestTranslationSpeed = "test-translation-speed"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump handles one event at a time, so a sender's messages reach the
// room in the order it sent them.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, cl *client) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(cl.sid)).Msg("readPump closing")
		ctl.Orch.OnDisconnect(cl.sid)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(cl.sid)
		}
		cancel()
		cl.conn.Close()
	}()

	ws := cl.conn.conn
	pongWait := ctl.settings.PongWait
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(cl.sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(ctx, cl, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, cl *client, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("bad json")
		ctl.sendError(cl.conn, "bad_payload")
		return
	}

	switch env.Type {
	case EventCreateRoom:
		ctl.createRoom(cl)
	case EventJoinRoom:
		ctl.handleJoin(cl, data)
	case EventChatMessage:
		ctl.handleChat(ctx, cl, data)
	case EventSetUsername:
		ctl.handleRename(cl, data)
	case EventLeaveRoom:
		ctl.handleLeave(cl)
	case EventWhoAmI:
		ctl.handleWhoAmI(cl)
	case EventPing:
		ctl.handlePing(cl.conn)
	case EventTestTranslationSpeed:
		ctl.handleSpeedTest(ctx, cl, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

// decode unmarshals an event payload, answering bad_payload on failure.
func (ctl *SignalWSController) decode(cl *client, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("bad payload")
		ctl.sendError(cl.conn, "bad_payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON dropped")
	}
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, msg string) {
	ctl.sendJSON(c, errorEvent{Type: "error", Error: msg})
}

type errorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// clientError maps domain failures onto the short strings clients see.
func clientError(err error) string {
	switch {
	case errors.Is(err, core.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, core.ErrInvalidRoomCode):
		return "invalid room code"
	case errors.Is(err, core.ErrNotInRoom):
		return "not in room"
	case errors.Is(err, core.ErrEmptyMessage):
		return "empty message"
	case errors.Is(err, core.ErrMessageTooLong):
		return "message too long"
	case errors.Is(err, domain.ErrUsernameEmpty), errors.Is(err, domain.ErrUsernameTooLong):
		return "invalid name"
	case errors.Is(err, ErrRateLimited):
		return "rate limited"
	default:
		return "internal error"
	}
}
