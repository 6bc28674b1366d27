package signal

import (
	"context"

	"github.com/dkeye/babel/internal/domain"
	"github.com/rs/zerolog/log"
)

type ackEvent struct {
	Type  string `json:"type"`
	Ack   string `json:"ack"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleChat posts a message. Failures only reach the sender when it asked
// for an ack.
func (ctl *SignalWSController) handleChat(ctx context.Context, cl *client, data []byte) {
	type chatPayload struct {
		Room string `json:"room"`
		Text string `json:"text"`
		Ack  string `json:"ack,omitempty"`
	}
	var p chatPayload
	if !ctl.decode(cl, data, &p) {
		return
	}

	var (
		msg domain.Message
		err error
	)
	if ctl.Limiter != nil && !ctl.Limiter.Allow(cl.sid) {
		err = ErrRateLimited
	} else {
		msg, err = ctl.Orch.SubmitMessage(ctx, cl.sid, domain.RoomCode(p.Room), p.Text)
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("chat message rejected")
	}
	if p.Ack == "" {
		return
	}
	ack := ackEvent{Type: "ack", Ack: p.Ack, ID: msg.ID}
	if err != nil {
		ack.Error = clientError(err)
	}
	ctl.sendJSON(cl.conn, ack)
}

func (ctl *SignalWSController) handleSpeedTest(ctx context.Context, cl *client, data []byte) {
	type speedPayload struct {
		Text           string `json:"text"`
		TargetLanguage string `json:"targetLanguage"`
	}
	var p speedPayload
	if !ctl.decode(cl, data, &p) {
		return
	}
	if p.TargetLanguage == "" {
		p.TargetLanguage = "ja"
	}

	res, err := ctl.Orch.ProbeTranslation(ctx, p.Text, p.TargetLanguage)
	resp := struct {
		Type           string `json:"type"`
		Text           string `json:"text"`
		TranslatedText string `json:"translatedText"`
		TargetLanguage string `json:"targetLanguage"`
		ServerTimeMs   int64  `json:"serverTimeMs"`
		Error          string `json:"error,omitempty"`
	}{
		Type:           "translation-speed-result",
		Text:           p.Text,
		TranslatedText: res.TranslatedText,
		TargetLanguage: p.TargetLanguage,
		ServerTimeMs:   res.ServerTime.Milliseconds(),
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(cl.sid)).Msg("translation probe failed")
		resp.Error = "translation unavailable"
	}
	ctl.sendJSON(cl.conn, resp)
}
