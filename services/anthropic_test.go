package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicSend(t *testing.T) {
	var gotReq anthropicRequest
	var gotKey, gotVersion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Write([]byte(`{"content":[{"type":"text","text":"Hi"}]}`))
	}))
	defer server.Close()

	svc := NewAnthropicService(server.URL, "key-test", "claude-3-haiku-20240307")
	out, err := svc.Send(context.Background(), TurnInput{
		Message:       "Hello",
		SystemMessage: "You are helpful",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi", out.Message)
	assert.Empty(t, out.ThreadID)

	assert.Equal(t, "key-test", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "claude-3-haiku-20240307", gotReq.Model)
	assert.Equal(t, 1000, gotReq.MaxTokens)
	assert.Equal(t, 0.7, gotReq.Temperature)
	assert.Equal(t, "You are helpful", gotReq.System, "system message travels in its own field")
	require.Len(t, gotReq.Messages, 1, "messages array carries only the user turn")
	assert.Equal(t, RoleUser, gotReq.Messages[0].Role)
}

func TestAnthropicSendDropsNonTextParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[
			{"type":"text","text":"Hi"},
			{"type":"image","source":{"type":"base64"}},
			{"type":"text","text":" there"}
		]}`))
	}))
	defer server.Close()

	svc := NewAnthropicService(server.URL, "key-test", "claude-3-haiku-20240307")
	out, err := svc.Send(context.Background(), TurnInput{Message: "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "Hi there", out.Message)
}

func TestAnthropicSendMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"content absent", `{"id":"msg_123"}`},
		{"content empty", `{"content":[]}`},
		{"not json", `oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := NewAnthropicService(server.URL, "key-test", "claude-3-haiku-20240307")
			_, err := svc.Send(context.Background(), TurnInput{Message: "Hello"})

			var malformed *MalformedResponseError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestAnthropicSendVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"overloaded_error"}}`))
	}))
	defer server.Close()

	svc := NewAnthropicService(server.URL, "key-test", "claude-3-haiku-20240307")
	_, err := svc.Send(context.Background(), TurnInput{Message: "Hello"})

	var vendorErr *VendorError
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, http.StatusInternalServerError, vendorErr.StatusCode)
}

func TestAnthropicSendMissingAPIKey(t *testing.T) {
	svc := NewAnthropicService("http://127.0.0.1:1", "", "claude-3-haiku-20240307")
	_, err := svc.Send(context.Background(), TurnInput{Message: "Hello"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
