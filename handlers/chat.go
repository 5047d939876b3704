package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"clinic-chat/bridge"
	"clinic-chat/models"
	"clinic-chat/services"
	"clinic-chat/workflows"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/gin-gonic/gin"
)

// tokenHeader carries the per-session anti-forgery token on chat turns.
const tokenHeader = "X-Chat-Token"

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	db        *sql.DB
	dbosCtx   dbos.DBOSContext
	workflows *workflows.ChatWorkflows
	bridge    *bridge.Bridge
	tokens    *TokenStore
	history   bool
}

// NewChatHandler creates a new chat handler
func NewChatHandler(db *sql.DB, dbosCtx dbos.DBOSContext, wf *workflows.ChatWorkflows, b *bridge.Bridge, tokens *TokenStore, history bool) *ChatHandler {
	return &ChatHandler{
		db:        db,
		dbosCtx:   dbosCtx,
		workflows: wf,
		bridge:    b,
		tokens:    tokens,
		history:   history,
	}
}

type sessionReply struct {
	Token          string `json:"token"`
	WelcomeMessage string `json:"welcomeMessage"`
}

// Session issues a fresh anti-forgery token and the welcome message for
// the page context the widget was opened on.
func (h *ChatHandler) Session(c *gin.Context) {
	welcome := h.bridge.Welcome(c.Query("context"), c.Query("procedureName"))
	c.JSON(http.StatusOK, models.Envelope{
		Success: true,
		Data: sessionReply{
			Token:          h.tokens.Issue(),
			WelcomeMessage: welcome,
		},
	})
}

// Chat processes one chat turn through the durable workflow. The session
// token is validated before anything else; failures come back in the same
// envelope with a user-facing string and the full error in the server log.
func (h *ChatHandler) Chat(c *gin.Context) {
	if !h.tokens.Validate(c.GetHeader(tokenHeader)) {
		c.JSON(http.StatusForbidden, models.Envelope{
			Success: false,
			Data:    "Your session has expired. Please reload the page.",
		})
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Envelope{
			Success: false,
			Data:    "Invalid request body",
		})
		return
	}

	// Reject blank messages before starting a workflow; nothing is
	// persisted and no vendor is called for them.
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, models.Envelope{
			Success: false,
			Data:    bridge.UserMessage(services.ErrEmptyMessage),
		})
		return
	}

	handle, err := dbos.RunWorkflow(h.dbosCtx, h.workflows.TurnWorkflow, req)
	if err != nil {
		log.Printf("Failed to start Turn workflow: %v", err)
		c.JSON(http.StatusInternalServerError, models.Envelope{
			Success: false,
			Data:    bridge.UserMessage(err),
		})
		return
	}

	reply, err := handle.GetResult()
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, models.Envelope{
				Success: false,
				Data:    bridge.UserMessage(err),
			})
			return
		}
		log.Printf("Chat turn failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.Envelope{
			Success: false,
			Data:    bridge.UserMessage(err),
		})
		return
	}

	c.JSON(http.StatusOK, models.Envelope{Success: true, Data: reply})
}

// GetMessages retrieves the stored history for a continuity token, oldest
// first. Only available when history is enabled.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	if !h.history {
		c.JSON(http.StatusNotFound, gin.H{"error": "History is disabled"})
		return
	}

	threadID := c.Param("threadId")

	rows, err := h.db.QueryContext(c.Request.Context(),
		`SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
		 FROM messages m
		 JOIN conversations conv ON conv.id = m.conversation_id
		 WHERE conv.thread_id = $1
		 ORDER BY m.created_at ASC`,
		threadID)
	if err != nil {
		log.Printf("Database error loading history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get messages"})
		return
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan message"})
			return
		}
		messages = append(messages, msg)
	}

	c.JSON(http.StatusOK, messages)
}
