// Package openai implements translate.Translator on the chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
)

const DefaultModel = goopenai.GPT4oMini

var ErrEmptyReply = errors.New("openai: empty reply")

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type Translator struct {
	client *goopenai.Client
	model  string
}

func New(cfg Config) *Translator {
	c := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Translator{client: goopenai.NewClientWithConfig(c), model: model}
}

var languageNames = map[string]string{
	"ja": "Japanese",
	"en": "English",
}

func (t *Translator) Detect(ctx context.Context, text string) (string, error) {
	return t.ask(ctx,
		"Identify the language of the user's message. Reply with only its ISO 639-1 code, lowercase, nothing else.",
		text)
}

func (t *Translator) Translate(ctx context.Context, text, target string) (string, error) {
	lang := languageNames[target]
	if lang == "" {
		lang = target
	}
	return t.ask(ctx,
		fmt.Sprintf("Translate the user's message into %s. Reply with only the translation, keep the tone, do not add notes.", lang),
		text)
}

func (t *Translator) Transliterate(ctx context.Context, text string) (string, error) {
	return t.ask(ctx,
		"Write the user's Japanese text in Hepburn romaji. Reply with only the romaji.",
		text)
}

func (t *Translator) ask(ctx context.Context, instruction, text string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: t.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: instruction},
			{Role: goopenai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}
