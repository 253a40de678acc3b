// Package session persists study conversations: one session per study
// thread, with ordered user/assistant messages so follow-up questions
// keep their context.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TitleMaxLength caps session titles; longer titles are truncated with
// an ellipsis.
const TitleMaxLength = 100

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrSessionNotFound is returned when a session ID does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is one study conversation thread.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Style        string    `json:"style"`
	Language     string    `json:"language"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is a single turn in a session.
type Message struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"sessionId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SequenceNumber int       `json:"sequenceNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}
