// Package translate enriches chat messages with language detection,
// translation and romaji transliteration from an external service.
package translate

import (
	"context"
	"errors"
)

const (
	LangJapanese  = "ja"
	LangEnglish   = "en"
	LangUndefined = "und"
)

var ErrUnavailable = errors.New("translation unavailable")

// Translator is the external collaborator. Implementations may block on
// network calls and should honor ctx.
type Translator interface {
	Detect(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, target string) (string, error)
	// Transliterate renders Japanese text in Latin script.
	Transliterate(ctx context.Context, text string) (string, error)
}

// Enrichment is the metadata attached to a message before it is stored.
// Empty fields mean the step was skipped or failed.
type Enrichment struct {
	SourceLanguage  string
	TranslatedText  string
	TargetLanguage  string
	Transliteration string
}

// TargetFor picks the other side of a Japanese/English conversation.
func TargetFor(source string) string {
	if source == LangJapanese {
		return LangEnglish
	}
	return LangJapanese
}

// NopTranslator is used when no translation backend is configured.
type NopTranslator struct{}

func (NopTranslator) Detect(context.Context, string) (string, error) { return "", ErrUnavailable }
func (NopTranslator) Translate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}
func (NopTranslator) Transliterate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}
