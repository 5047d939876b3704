package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// AnthropicService talks to the Anthropic Messages API. Like the Chat
// Completions adapter it is stateless; Anthropic carries the system
// message in a dedicated top-level field rather than the messages array.
type AnthropicService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentPart `json:"content"`
}

// NewAnthropicService creates an Anthropic Messages adapter.
func NewAnthropicService(baseURL, apiKey, model string) *AnthropicService {
	return &AnthropicService{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Send performs a single Messages call. The reply is built by joining the
// text content parts in order; non-text parts are dropped.
func (s *AnthropicService) Send(ctx context.Context, in TurnInput) (TurnOutput, error) {
	if s.apiKey == "" {
		return TurnOutput{}, ErrMissingAPIKey
	}

	reqBody := anthropicRequest{
		Model:       s.model,
		MaxTokens:   1000,
		Temperature: 0.7,
		System:      in.SystemMessage,
		Messages: []anthropicMessage{
			{Role: RoleUser, Content: in.Message},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return TurnOutput{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return TurnOutput{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TurnOutput{}, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return TurnOutput{}, &VendorError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var msgResp anthropicResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return TurnOutput{}, &MalformedResponseError{Reason: "response is not valid JSON"}
	}

	if len(msgResp.Content) == 0 {
		return TurnOutput{}, &MalformedResponseError{Reason: "content is absent or empty"}
	}

	var text strings.Builder
	for _, part := range msgResp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}

	return TurnOutput{Message: text.String()}, nil
}
