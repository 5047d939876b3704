package bridge

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-chat/config"
	"clinic-chat/models"
	"clinic-chat/services"
)

// stubBackend records calls and plays back a canned result.
type stubBackend struct {
	calls []services.TurnInput
	out   services.TurnOutput
	err   error
}

func (s *stubBackend) Send(_ context.Context, in services.TurnInput) (services.TurnOutput, error) {
	s.calls = append(s.calls, in)
	return s.out, s.err
}

func testConfig(model, assistantID string) *config.Config {
	return &config.Config{
		Model:       model,
		AssistantID: assistantID,
		Templates: config.Templates{
			SystemDefault:    "default system",
			SystemProcedure:  "system for {PROCEDURE_NAME}",
			WelcomeDefault:   "hello",
			WelcomeProcedure: "welcome to {PROCEDURE_NAME}",
		},
	}
}

func TestHandleTurnRejectsEmptyMessage(t *testing.T) {
	chat := &stubBackend{}
	b := New(testConfig("gpt-4o-mini", ""), services.Backends{OpenAIChat: chat})

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := b.HandleTurn(context.Background(), models.ChatRequest{Message: message})
		assert.ErrorIs(t, err, services.ErrEmptyMessage)
	}
	assert.Empty(t, chat.calls, "no backend call may happen for an empty message")
}

func TestHandleTurnDispatch(t *testing.T) {
	chat := &stubBackend{out: services.TurnOutput{Message: "reply text"}}
	b := New(testConfig("gpt-4o-mini", ""), services.Backends{OpenAIChat: chat})

	reply, err := b.HandleTurn(context.Background(), models.ChatRequest{
		Message:       "  What is laser peeling?  ",
		Context:       "procedure",
		ProcedureName: "Laser Peeling",
	})
	require.NoError(t, err)

	assert.Equal(t, "reply text", reply.Message)
	assert.Empty(t, reply.ThreadID)

	require.Len(t, chat.calls, 1)
	assert.Equal(t, "What is laser peeling?", chat.calls[0].Message, "message is trimmed before dispatch")
	assert.Equal(t, "system for Laser Peeling", chat.calls[0].SystemMessage)
}

func TestHandleTurnRoutesByModel(t *testing.T) {
	tests := []struct {
		name        string
		model       string
		assistantID string
		want        string
	}{
		{"claude goes to anthropic", "claude-3-haiku-20240307", "", "anthropic"},
		{"claude wins over assistant id", "claude-3-haiku-20240307", "asst_1", "anthropic"},
		{"assistant id goes to assistants", "gpt-4o-mini", "asst_1", "assistants"},
		{"plain model goes to chat", "gpt-4o-mini", "", "chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &stubBackend{}
			assistants := &stubBackend{}
			anthropic := &stubBackend{}
			b := New(testConfig(tt.model, tt.assistantID), services.Backends{
				OpenAIChat:       chat,
				OpenAIAssistants: assistants,
				Anthropic:        anthropic,
			})

			_, err := b.HandleTurn(context.Background(), models.ChatRequest{Message: "Hello"})
			require.NoError(t, err)

			byName := map[string]*stubBackend{"chat": chat, "assistants": assistants, "anthropic": anthropic}
			for name, backend := range byName {
				if name == tt.want {
					assert.Len(t, backend.calls, 1, "expected dispatch to %s", name)
				} else {
					assert.Empty(t, backend.calls, "unexpected dispatch to %s", name)
				}
			}
		})
	}
}

func TestHandleTurnPassesThreadIDThrough(t *testing.T) {
	assistants := &stubBackend{out: services.TurnOutput{Message: "ok", ThreadID: "thread_1"}}
	b := New(testConfig("gpt-4o-mini", "asst_1"), services.Backends{OpenAIAssistants: assistants})

	reply, err := b.HandleTurn(context.Background(), models.ChatRequest{
		Message:  "Hello",
		ThreadID: " thread_1 ",
	})
	require.NoError(t, err)

	require.Len(t, assistants.calls, 1)
	assert.Equal(t, "thread_1", assistants.calls[0].ThreadID)
	assert.Equal(t, "thread_1", reply.ThreadID)
}

func TestHandleTurnReturnsAdapterErrorUnchanged(t *testing.T) {
	vendorErr := &services.VendorError{StatusCode: http.StatusTooManyRequests, Body: "rate limited"}
	chat := &stubBackend{err: vendorErr}
	b := New(testConfig("gpt-4o-mini", ""), services.Backends{OpenAIChat: chat})

	_, err := b.HandleTurn(context.Background(), models.ChatRequest{Message: "Hello"})

	var got *services.VendorError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, http.StatusTooManyRequests, got.StatusCode)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please type a message first.", UserMessage(services.ErrEmptyMessage))

	generic := []error{
		services.ErrMissingAPIKey,
		services.ErrNoAssistantResponse,
		&services.TransportError{Err: context.DeadlineExceeded},
		&services.VendorError{StatusCode: 429, Body: "rate limited"},
		&services.MalformedResponseError{Reason: "no choices"},
		&services.RunFailedError{Status: services.RunStatusExpired},
		&services.RunTimeoutError{Attempts: 15},
	}
	for _, err := range generic {
		msg := UserMessage(err)
		assert.Equal(t, genericApology, msg)
		assert.NotContains(t, msg, "429", "diagnostic detail must not reach the user")
	}
}

func TestWelcome(t *testing.T) {
	b := New(testConfig("gpt-4o-mini", ""), services.Backends{})

	assert.Equal(t, "hello", b.Welcome("", ""))
	assert.Equal(t, "welcome to Botox", b.Welcome("procedure", "Botox"))
}
