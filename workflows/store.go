package workflows

import (
	"context"
	"database/sql"
	"time"

	"clinic-chat/models"

	"github.com/google/uuid"
)

// ConversationStore is what the turn pipeline needs from storage.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, threadID string) (models.Conversation, error)
	CreateConversation(ctx context.Context, threadID string) (models.Conversation, error)
	SaveMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (models.Message, error)
}

// Store implements ConversationStore over Postgres.
type Store struct {
	db *sql.DB
}

// NewStore wraps a database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureConversation looks up the conversation for a continuity token,
// creating it if the token has no row yet (the token is opaque and owned
// by the caller, so an unknown one just starts a fresh history).
func (s *Store) EnsureConversation(ctx context.Context, threadID string) (models.Conversation, error) {
	var conv models.Conversation
	err := s.db.QueryRowContext(ctx,
		"SELECT id, thread_id, created_at FROM conversations WHERE thread_id = $1", threadID).
		Scan(&conv.ID, &conv.ThreadID, &conv.CreatedAt)
	if err == nil {
		return conv, nil
	}
	if err != sql.ErrNoRows {
		return models.Conversation{}, err
	}
	return s.CreateConversation(ctx, threadID)
}

// CreateConversation inserts a conversation row. threadID may be empty
// for stateless backends, which have no continuity token.
func (s *Store) CreateConversation(ctx context.Context, threadID string) (models.Conversation, error) {
	id := uuid.New()
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations (id, thread_id, created_at) VALUES ($1, $2, $3)",
		id, threadID, now)
	if err != nil {
		return models.Conversation{}, err
	}

	return models.Conversation{
		ID:        id,
		ThreadID:  threadID,
		CreatedAt: now,
	}, nil
}

// SaveMessage appends a message to a conversation
func (s *Store) SaveMessage(ctx context.Context, conversationID uuid.UUID, role, content string) (models.Message, error) {
	id := uuid.New()
	now := time.Now()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)",
		id, conversationID, role, content, now)
	if err != nil {
		return models.Message{}, err
	}

	return models.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}
