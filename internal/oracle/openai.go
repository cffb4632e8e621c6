package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OpenAIOracle implements Oracle against the OpenAI-family chat
// completions REST API using raw net/http, matching the teacher's own
// choice not to route provider calls through an LLM orchestration SDK.
//
// Deferred-batch mode (Submit/Poll/Fetch) is not implemented for this
// provider binding — interactive mode covers it fully, and wiring the
// real OpenAI Batch API is future work tracked outside this core.
type OpenAIOracle struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewOpenAIOracle creates an OpenAIOracle. apiKey must be non-empty.
func NewOpenAIOracle(apiKey string) (*OpenAIOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle: OpenAI API key is empty")
	}
	return &OpenAIOracle{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
	}, nil
}

func (o *OpenAIOracle) Complete(ctx context.Context, model string, requests []Request) (map[string]string, error) {
	results := make(map[string]string, len(requests))
	for _, req := range requests {
		text, err := o.completeOne(ctx, model, req)
		if err != nil {
			return results, err
		}
		results[req.CustomID] = text
	}
	return results, nil
}

func (o *OpenAIOracle) completeOne(ctx context.Context, model string, req Request) (string, error) {
	payload := openaiRequest{
		Model: model,
		Messages: []openaiMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("oracle: marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("oracle: build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	slog.Debug("oracle: dispatching openai request", slog.String("model", model), slog.String("custom_id", req.CustomID))

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oracle: read openai response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %w: openai status %d", ErrRateLimited, ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: openai status %d", ErrTransient, resp.StatusCode)
	}

	var parsed openaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("oracle: decode openai response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("oracle: openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("oracle: openai response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (o *OpenAIOracle) Submit(ctx context.Context, model string, requests []Request) (string, error) {
	return "", fmt.Errorf("oracle: OpenAI deferred batch mode not implemented")
}

func (o *OpenAIOracle) Poll(ctx context.Context, batchID string) (bool, error) {
	return false, fmt.Errorf("oracle: OpenAI deferred batch mode not implemented")
}

func (o *OpenAIOracle) Fetch(ctx context.Context, batchID string) (map[string]string, error) {
	return nil, fmt.Errorf("oracle: OpenAI deferred batch mode not implemented")
}
