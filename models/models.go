package models

import (
	"time"

	"github.com/google/uuid"
)

// PageContext identifies which part of the site the widget was opened on.
// It drives system-prompt and welcome-message selection.
type PageContext string

const (
	ContextDefault           PageContext = "default"
	ContextProcedure         PageContext = "procedure"
	ContextContraindications PageContext = "contraindications"
	ContextPrices            PageContext = "prices"
)

// Conversation represents a chat conversation. ThreadID is the vendor
// continuity token (OpenAI thread id); it is empty for stateless backends.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  string    `json:"thread_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message represents a message in a conversation
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatRequest is the request body for a chat turn from the widget
type ChatRequest struct {
	Message       string `json:"message"`
	ThreadID      string `json:"threadId"`
	Context       string `json:"context"`
	ProcedureName string `json:"procedureName"`
}

// ChatReply is the success payload for a chat turn
type ChatReply struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId,omitempty"`
}

// Envelope is the uniform response wrapper the widget expects: Data is a
// ChatReply on success and a user-facing error string on failure.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}
