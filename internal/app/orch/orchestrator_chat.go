package orch

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dkeye/babel/internal/core"
	"github.com/dkeye/babel/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SubmitMessage enriches text, stores it in the room history and fans it
// out to every member, sender included. Enrichment runs outside the room
// lock, so messages from different senders land in completion order.
func (o *Orchestrator) SubmitMessage(ctx context.Context, sid core.SessionID, code domain.RoomCode, text string) (domain.Message, error) {
	current, _, ok := o.Registry.RoomOf(sid)
	if !ok || (code != "" && code != current) {
		return domain.Message{}, core.ErrNotInRoom
	}
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, core.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > o.maxMessageLen() {
		return domain.Message{}, core.ErrMessageTooLong
	}
	room, err := o.room(current)
	if err != nil {
		return domain.Message{}, err
	}
	member, ok := room.Member(sid)
	if !ok {
		return domain.Message{}, core.ErrNotInRoom
	}

	msg := domain.Message{
		ID:        uuid.NewString(),
		Username:  member.Username,
		Text:      text,
		Color:     member.Color,
		Timestamp: o.clock().UTC(),
	}
	if o.Enricher != nil {
		e := o.Enricher.Enrich(ctx, text)
		msg.SourceLanguage = e.SourceLanguage
		msg.TranslatedText = e.TranslatedText
		msg.TargetLanguage = e.TargetLanguage
		msg.Transliteration = e.Transliteration
	}

	stored, res, err := room.Post(msg, encodeChat)
	if err != nil {
		return domain.Message{}, fmt.Errorf("post message: %w", err)
	}
	o.handleDropped(room, res)

	log.Info().
		Str("module", "orch").
		Str("room", string(current)).
		Str("sid", string(sid)).
		Str("lang", stored.SourceLanguage).
		Bool("translated", stored.Translated()).
		Int("sent_to", res.SendTo).
		Msg("message posted")
	return stored, nil
}

type ProbeResult struct {
	Text           string
	TranslatedText string
	TargetLanguage string
	ServerTime     time.Duration
}

// ProbeTranslation measures one round trip to the translation service.
func (o *Orchestrator) ProbeTranslation(ctx context.Context, text, target string) (ProbeResult, error) {
	if strings.TrimSpace(text) == "" {
		return ProbeResult{}, core.ErrEmptyMessage
	}
	if o.Enricher == nil {
		return ProbeResult{}, fmt.Errorf("probe: no translation pipeline")
	}
	out, took, err := o.Enricher.Probe(ctx, text, target)
	res := ProbeResult{Text: text, TranslatedText: out, TargetLanguage: target, ServerTime: took}
	if err != nil {
		return res, fmt.Errorf("probe: %w", err)
	}
	return res, nil
}
