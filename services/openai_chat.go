package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIChatService talks to the OpenAI Chat Completions API. It is
// stateless: each turn sends the system message plus the latest user
// message only, so the returned TurnOutput carries no thread id.
type OpenAIChatService struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewOpenAIChatService creates a Chat Completions adapter. baseURL is the
// API origin without a trailing slash.
func NewOpenAIChatService(baseURL, apiKey, model string) *OpenAIChatService {
	return &OpenAIChatService{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Send performs a single completion call and returns the assistant text.
func (s *OpenAIChatService) Send(ctx context.Context, in TurnInput) (TurnOutput, error) {
	if s.apiKey == "" {
		return TurnOutput{}, ErrMissingAPIKey
	}

	reqBody := openAIChatRequest{
		Model: s.model,
		Messages: []openAIChatMessage{
			{Role: RoleSystem, Content: in.SystemMessage},
			{Role: RoleUser, Content: in.Message},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return TurnOutput{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return TurnOutput{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

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

	var chatResp openAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return TurnOutput{}, &MalformedResponseError{Reason: "response is not valid JSON"}
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return TurnOutput{}, &MalformedResponseError{Reason: "no message content in choices"}
	}

	return TurnOutput{Message: chatResp.Choices[0].Message.Content}, nil
}
