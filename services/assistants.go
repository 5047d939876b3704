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

// RunStatus is the lifecycle state of an assistant run as reported by the
// vendor. queued/in_progress (and any unknown in-flight status) keep the
// poll loop going; the four terminal states end it.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
	RunStatusExpired    RunStatus = "expired"
)

// Terminal reports whether the run has finished, successfully or not.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

const (
	assistantsBetaHeader = "assistants=v2"

	defaultPollInterval    = time.Second
	defaultMaxPollAttempts = 15
)

// OpenAIAssistantsService talks to the OpenAI Assistants/Threads API. It
// hides a multi-call asynchronous protocol behind the same synchronous
// Send contract as the stateless adapters: create (or append to) a
// thread, start a run, poll the run to a terminal state, then read the
// newest assistant message back out of the thread.
type OpenAIAssistantsService struct {
	baseURL     string
	apiKey      string
	assistantID string

	// client serves the single calls (create, append, message retrieval);
	// pollClient serves the run-status polls on a tighter timeout.
	client     *http.Client
	pollClient *http.Client

	pollInterval    time.Duration
	maxPollAttempts int
}

// NewOpenAIAssistantsService creates an Assistants adapter with the
// default polling budget (one poll per second, 15 attempts).
func NewOpenAIAssistantsService(baseURL, apiKey, assistantID string) *OpenAIAssistantsService {
	return &OpenAIAssistantsService{
		baseURL:     baseURL,
		apiKey:      apiKey,
		assistantID: assistantID,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

// Send runs one chat turn against the assistant. An empty in.ThreadID
// starts a new thread via the combined create-and-run call; a non-empty
// one appends to the existing thread. The thread id is always returned so
// the widget can present it on the next turn.
func (s *OpenAIAssistantsService) Send(ctx context.Context, in TurnInput) (TurnOutput, error) {
	if s.apiKey == "" {
		return TurnOutput{}, ErrMissingAPIKey
	}

	threadID := in.ThreadID
	var runID string
	var err error

	if threadID == "" {
		threadID, runID, err = s.createThreadAndRun(ctx, in.Message)
	} else {
		// Append first; the run is never started if the append fails.
		if err = s.addMessage(ctx, threadID, in.Message); err == nil {
			runID, err = s.createRun(ctx, threadID)
		}
	}
	if err != nil {
		return TurnOutput{}, err
	}

	if err := s.waitForRun(ctx, threadID, runID); err != nil {
		return TurnOutput{}, err
	}

	text, err := s.latestAssistantMessage(ctx, threadID)
	if err != nil {
		return TurnOutput{}, err
	}

	return TurnOutput{Message: text, ThreadID: threadID}, nil
}

type assistantsThreadMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type createThreadAndRunRequest struct {
	AssistantID string `json:"assistant_id"`
	Thread      struct {
		Messages []assistantsThreadMessage `json:"messages"`
	} `json:"thread"`
}

type runResponse struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"thread_id"`
	Status   RunStatus `json:"status"`
}

// createThreadAndRun starts a new thread seeded with the user message and
// its first run in a single round trip.
func (s *OpenAIAssistantsService) createThreadAndRun(ctx context.Context, message string) (threadID, runID string, err error) {
	reqBody := createThreadAndRunRequest{AssistantID: s.assistantID}
	reqBody.Thread.Messages = []assistantsThreadMessage{{Role: RoleUser, Content: message}}

	var run runResponse
	if err := s.doJSON(ctx, s.client, http.MethodPost, "/v1/threads/runs", reqBody, &run); err != nil {
		return "", "", err
	}
	if run.ID == "" || run.ThreadID == "" {
		return "", "", &MalformedResponseError{Reason: "run id or thread id missing"}
	}
	return run.ThreadID, run.ID, nil
}

// addMessage appends the user message to an existing thread.
func (s *OpenAIAssistantsService) addMessage(ctx context.Context, threadID, message string) error {
	reqBody := assistantsThreadMessage{Role: RoleUser, Content: message}
	path := fmt.Sprintf("/v1/threads/%s/messages", threadID)
	return s.doJSON(ctx, s.client, http.MethodPost, path, reqBody, nil)
}

// createRun starts a run of the configured assistant against a thread.
func (s *OpenAIAssistantsService) createRun(ctx context.Context, threadID string) (string, error) {
	reqBody := map[string]string{"assistant_id": s.assistantID}
	path := fmt.Sprintf("/v1/threads/%s/runs", threadID)

	var run runResponse
	if err := s.doJSON(ctx, s.client, http.MethodPost, path, reqBody, &run); err != nil {
		return "", err
	}
	if run.ID == "" {
		return "", &MalformedResponseError{Reason: "run id missing"}
	}
	return run.ID, nil
}

// waitForRun polls the run until it completes. A non-completed terminal
// state aborts on the poll that observes it; exhausting the attempt
// budget without a terminal state is a timeout.
func (s *OpenAIAssistantsService) waitForRun(ctx context.Context, threadID, runID string) error {
	path := fmt.Sprintf("/v1/threads/%s/runs/%s", threadID, runID)

	for attempt := 0; attempt < s.maxPollAttempts; attempt++ {
		if err := s.pause(ctx); err != nil {
			return err
		}

		var run runResponse
		if err := s.doJSON(ctx, s.pollClient, http.MethodGet, path, nil, &run); err != nil {
			return err
		}

		if run.Status == RunStatusCompleted {
			return nil
		}
		if run.Status.Terminal() {
			return &RunFailedError{Status: run.Status}
		}
	}

	return &RunTimeoutError{Attempts: s.maxPollAttempts}
}

func (s *OpenAIAssistantsService) pause(ctx context.Context) error {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &TransportError{Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

type assistantsMessagePart struct {
	Type string `json:"type"`
	Text struct {
		Value string `json:"value"`
	} `json:"text"`
}

type assistantsMessage struct {
	Role    string                  `json:"role"`
	Content []assistantsMessagePart `json:"content"`
}

type listMessagesResponse struct {
	Data []assistantsMessage `json:"data"`
}

// latestAssistantMessage returns the text of the newest assistant message
// in the thread. The vendor lists messages newest-first, so the first
// assistant-authored entry is the reply to the run that just finished.
// Text parts nest the literal string under text.value, one level deeper
// than the Anthropic shape.
func (s *OpenAIAssistantsService) latestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	path := fmt.Sprintf("/v1/threads/%s/messages", threadID)

	var list listMessagesResponse
	if err := s.doJSON(ctx, s.client, http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}

	for _, msg := range list.Data {
		if msg.Role != RoleAssistant {
			continue
		}
		var text strings.Builder
		for _, part := range msg.Content {
			if part.Type == "text" {
				text.WriteString(part.Text.Value)
			}
		}
		return text.String(), nil
	}

	return "", ErrNoAssistantResponse
}

// doJSON performs one Assistants API call with the given client,
// translating failures into the adapter error taxonomy. A nil out skips
// response decoding.
func (s *OpenAIAssistantsService) doJSON(ctx context.Context, client *http.Client, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("OpenAI-Beta", assistantsBetaHeader)

	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &VendorError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &MalformedResponseError{Reason: "response is not valid JSON"}
	}
	return nil
}
