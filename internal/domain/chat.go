package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ChatKind string

const (
	ChatSystem ChatKind = "system"
	ChatUser   ChatKind = "user"
)

type ChatMessage struct {
	ID         string    `json:"id"`
	Kind       ChatKind  `json:"kind"`
	SenderID   UserID    `json:"senderId,omitempty"`
	SenderName string    `json:"senderName,omitempty"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewSystemMessage(text string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Kind:      ChatSystem,
		Text:      text,
		Timestamp: now,
	}
}

// NewUserMessage validates text and builds a user chat entry.
func NewUserMessage(from User, text string, now time.Time) (ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, Validation("message text is empty")
	}
	if !utf8.ValidString(text) {
		return ChatMessage{}, Validation("message contains invalid characters")
	}
	if utf8.RuneCountInString(text) > MaxChatLen {
		return ChatMessage{}, Validation("message too long")
	}
	return ChatMessage{
		ID:         uuid.NewString(),
		Kind:       ChatUser,
		SenderID:   from.ID,
		SenderName: from.DisplayName,
		Text:       text,
		Timestamp:  now,
	}, nil
}
