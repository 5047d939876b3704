package bridge

import (
	"context"
	"errors"
	"strings"

	"clinic-chat/config"
	"clinic-chat/models"
	"clinic-chat/prompts"
	"clinic-chat/services"
)

// Bridge is the single entry point for a chat turn: it validates the
// message, resolves the page-context prompts, selects the vendor backend
// and dispatches to it, passing the continuity token straight through.
// It never retries; a failed turn is reported to the caller as-is.
type Bridge struct {
	templates   config.Templates
	model       string
	assistantID string
	backends    services.Backends
}

// New builds a Bridge over the constructed backend adapters.
func New(cfg *config.Config, backends services.Backends) *Bridge {
	return &Bridge{
		templates:   cfg.Templates,
		model:       cfg.Model,
		assistantID: cfg.AssistantID,
		backends:    backends,
	}
}

// HandleTurn processes one user message and returns the normalized reply.
// A blank message fails with services.ErrEmptyMessage before any network
// call. Adapter errors are returned unwrapped so the caller can log the
// full detail while showing the user only UserMessage(err).
func (b *Bridge) HandleTurn(ctx context.Context, req models.ChatRequest) (models.ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return models.ChatReply{}, services.ErrEmptyMessage
	}

	resolved := prompts.Resolve(b.templates, prompts.Page{
		Context:       config.ParseContext(req.Context),
		ProcedureName: req.ProcedureName,
	})

	vendor := services.SelectVendor(b.model, b.assistantID != "")
	backend := b.backends.ForVendor(vendor)

	out, err := backend.Send(ctx, services.TurnInput{
		Message:       message,
		SystemMessage: resolved.SystemMessage,
		ThreadID:      strings.TrimSpace(req.ThreadID),
	})
	if err != nil {
		return models.ChatReply{}, err
	}

	return models.ChatReply{Message: out.Message, ThreadID: out.ThreadID}, nil
}

// Welcome returns the widget greeting for a page context.
func (b *Bridge) Welcome(contextTag, procedureName string) string {
	resolved := prompts.Resolve(b.templates, prompts.Page{
		Context:       config.ParseContext(contextTag),
		ProcedureName: procedureName,
	})
	return resolved.WelcomeMessage
}

const genericApology = "Sorry, something went wrong. Please try again in a moment."

// UserMessage maps a turn failure to the string shown to the end user.
// Validation failures keep their own wording; every vendor, transport, or
// protocol failure collapses into one generic apology so diagnostic
// detail stays in the server log.
func UserMessage(err error) string {
	if errors.Is(err, services.ErrEmptyMessage) {
		return "Please type a message first."
	}
	return genericApology
}
