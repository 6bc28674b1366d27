package domain

import "time"

// Message is a chat line as stored in room history and sent to clients.
// Text is opaque user data; nothing here interprets it as markup.
type Message struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Text            string    `json:"text"`
	Color           Color     `json:"color"`
	Timestamp       time.Time `json:"timestamp"`
	SourceLanguage  string    `json:"sourceLanguage"`
	TranslatedText  string    `json:"translatedText,omitempty"`
	TargetLanguage  string    `json:"targetLanguage,omitempty"`
	Transliteration string    `json:"transliteration,omitempty"`
}

func (m Message) Translated() bool { return m.TranslatedText != "" }
