package workflows

import (
	"context"
	"strings"

	"clinic-chat/models"
	"clinic-chat/services"

	"github.com/dbos-inc/dbos-transact-golang/dbos"
	"github.com/google/uuid"
)

// TurnDispatcher is what the turn pipeline needs from the bridge.
type TurnDispatcher interface {
	HandleTurn(ctx context.Context, req models.ChatRequest) (models.ChatReply, error)
}

// ChatWorkflows contains the DBOS workflow for chat turns. Each side
// effect (conversation row, message rows, the vendor call) is a durable
// step, so an interrupted turn resumes from the last completed step
// instead of re-billing the vendor.
type ChatWorkflows struct {
	store   ConversationStore
	bridge  TurnDispatcher
	history bool
}

// NewChatWorkflows creates a new ChatWorkflows instance. With history
// disabled the workflow only wraps the vendor dispatch.
func NewChatWorkflows(store ConversationStore, b TurnDispatcher, history bool) *ChatWorkflows {
	return &ChatWorkflows{
		store:   store,
		bridge:  b,
		history: history,
	}
}

// TurnWorkflow runs one chat turn durably, with every side effect of the
// pipeline wrapped in a DBOS step.
func (w *ChatWorkflows) TurnWorkflow(ctx dbos.DBOSContext, input models.ChatRequest) (models.ChatReply, error) {
	return w.runTurn(&durableSteps{ctx: ctx, w: w}, input)
}

// turnSteps is the turn pipeline's side-effect surface, one durable step
// per method. The DBOS implementation wraps each call in RunAsStep; tests
// drive the pipeline with a recording fake.
type turnSteps interface {
	ensureConversation(threadID string) (models.Conversation, error)
	createConversation(threadID string) (models.Conversation, error)
	saveMessage(conversationID uuid.UUID, role, content string) (models.Message, error)
	dispatch(input models.ChatRequest) (models.ChatReply, error)
}

// runTurn is the turn pipeline. Continuing an existing thread records the
// user message before the vendor call; a brand-new thread has no
// continuity token until the vendor answers, so its conversation row and
// messages are recorded after dispatch. History rows are append-only;
// nothing here ever deletes.
func (w *ChatWorkflows) runTurn(steps turnSteps, input models.ChatRequest) (models.ChatReply, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return models.ChatReply{}, services.ErrEmptyMessage
	}

	if !w.history {
		return steps.dispatch(input)
	}

	threadID := strings.TrimSpace(input.ThreadID)

	var conv models.Conversation
	var err error
	if threadID != "" {
		if conv, err = steps.ensureConversation(threadID); err != nil {
			return models.ChatReply{}, err
		}
		if _, err = steps.saveMessage(conv.ID, "user", message); err != nil {
			return models.ChatReply{}, err
		}
	}

	reply, err := steps.dispatch(input)
	if err != nil {
		return models.ChatReply{}, err
	}

	if threadID == "" {
		if conv, err = steps.createConversation(reply.ThreadID); err != nil {
			return models.ChatReply{}, err
		}
		if _, err = steps.saveMessage(conv.ID, "user", message); err != nil {
			return models.ChatReply{}, err
		}
	}

	if _, err = steps.saveMessage(conv.ID, "assistant", reply.Message); err != nil {
		return models.ChatReply{}, err
	}

	return reply, nil
}

// durableSteps runs each pipeline side effect as a DBOS step.
type durableSteps struct {
	ctx dbos.DBOSContext
	w   *ChatWorkflows
}

func (s *durableSteps) ensureConversation(threadID string) (models.Conversation, error) {
	return dbos.RunAsStep(s.ctx, func(stepCtx context.Context) (models.Conversation, error) {
		return s.w.store.EnsureConversation(stepCtx, threadID)
	})
}

func (s *durableSteps) createConversation(threadID string) (models.Conversation, error) {
	return dbos.RunAsStep(s.ctx, func(stepCtx context.Context) (models.Conversation, error) {
		return s.w.store.CreateConversation(stepCtx, threadID)
	})
}

func (s *durableSteps) saveMessage(conversationID uuid.UUID, role, content string) (models.Message, error) {
	return dbos.RunAsStep(s.ctx, func(stepCtx context.Context) (models.Message, error) {
		return s.w.store.SaveMessage(stepCtx, conversationID, role, content)
	})
}

func (s *durableSteps) dispatch(input models.ChatRequest) (models.ChatReply, error) {
	return dbos.RunAsStep(s.ctx, func(stepCtx context.Context) (models.ChatReply, error) {
		return s.w.bridge.HandleTurn(stepCtx, input)
	})
}
