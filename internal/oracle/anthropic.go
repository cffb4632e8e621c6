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

const (
	anthropicAPIVersion    = "2023-06-01"
	defaultAnthropicURL    = "https://api.anthropic.com/v1/messages"
	defaultAnthropicBatch  = "https://api.anthropic.com/v1/messages/batches"
	anthropicDefaultTokens = 4096
)

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Batch wire types for the deferred Message Batches API.
type anthropicBatchRequestItem struct {
	CustomID string           `json:"custom_id"`
	Params   anthropicRequest `json:"params"`
}

type anthropicBatchCreateRequest struct {
	Requests []anthropicBatchRequestItem `json:"requests"`
}

type anthropicBatchResponse struct {
	ID               string `json:"id"`
	ProcessingStatus string `json:"processing_status"`
	ResultsURL       string `json:"results_url"`
}

type anthropicBatchResultLine struct {
	CustomID string `json:"custom_id"`
	Result   struct {
		Type    string `json:"type"`
		Message struct {
			Content []anthropicContent `json:"content"`
		} `json:"message"`
	} `json:"result"`
}

// AnthropicOracle implements Oracle against the Anthropic Messages API
// (interactive) and Message Batches API (deferred), using raw net/http —
// matching the teacher's own choice of a direct client over an SDK.
type AnthropicOracle struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	batchURL   string
}

// NewAnthropicOracle creates an AnthropicOracle. apiKey must be non-empty.
func NewAnthropicOracle(apiKey string) (*AnthropicOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("oracle: Anthropic API key is empty")
	}
	return &AnthropicOracle{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultAnthropicURL,
		batchURL:   defaultAnthropicBatch,
	}, nil
}

func (a *AnthropicOracle) newHTTPRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	return req, nil
}

func (a *AnthropicOracle) Complete(ctx context.Context, model string, requests []Request) (map[string]string, error) {
	results := make(map[string]string, len(requests))
	for _, req := range requests {
		text, err := a.completeOne(ctx, model, req)
		if err != nil {
			return results, err
		}
		results[req.CustomID] = text
	}
	return results, nil
}

func (a *AnthropicOracle) completeOne(ctx context.Context, model string, req Request) (string, error) {
	payload := anthropicRequest{
		Model:     model,
		System:    req.SystemPrompt,
		MaxTokens: anthropicDefaultTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("oracle: marshal anthropic request: %w", err)
	}

	httpReq, err := a.newHTTPRequest(ctx, http.MethodPost, a.baseURL, body)
	if err != nil {
		return "", fmt.Errorf("oracle: build anthropic request: %w", err)
	}

	slog.Debug("oracle: dispatching anthropic request", slog.String("model", model), slog.String("custom_id", req.CustomID))

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oracle: read anthropic response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %w: anthropic status %d", ErrRateLimited, ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: anthropic status %d", ErrTransient, resp.StatusCode)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("oracle: decode anthropic response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("oracle: anthropic error: %s", parsed.Error.Message)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("oracle: anthropic response had no text block")
}

func (a *AnthropicOracle) Submit(ctx context.Context, model string, requests []Request) (string, error) {
	items := make([]anthropicBatchRequestItem, 0, len(requests))
	for _, req := range requests {
		items = append(items, anthropicBatchRequestItem{
			CustomID: req.CustomID,
			Params: anthropicRequest{
				Model:     model,
				System:    req.SystemPrompt,
				MaxTokens: anthropicDefaultTokens,
				Messages:  []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
			},
		})
	}

	body, err := json.Marshal(anthropicBatchCreateRequest{Requests: items})
	if err != nil {
		return "", fmt.Errorf("oracle: marshal anthropic batch request: %w", err)
	}

	httpReq, err := a.newHTTPRequest(ctx, http.MethodPost, a.batchURL, body)
	if err != nil {
		return "", fmt.Errorf("oracle: build anthropic batch request: %w", err)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oracle: read anthropic batch response: %w", err)
	}

	var parsed anthropicBatchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("oracle: decode anthropic batch response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("oracle: anthropic batch submission returned no id")
	}
	return parsed.ID, nil
}

func (a *AnthropicOracle) Poll(ctx context.Context, batchID string) (bool, error) {
	httpReq, err := a.newHTTPRequest(ctx, http.MethodGet, a.batchURL+"/"+batchID, nil)
	if err != nil {
		return false, fmt.Errorf("oracle: build anthropic poll request: %w", err)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("oracle: read anthropic poll response: %w", err)
	}

	var parsed anthropicBatchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return false, fmt.Errorf("oracle: decode anthropic poll response: %w", err)
	}
	return parsed.ProcessingStatus == "ended", nil
}

func (a *AnthropicOracle) Fetch(ctx context.Context, batchID string) (map[string]string, error) {
	done, err := a.Poll(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, ErrBatchNotReady
	}

	httpReq, err := a.newHTTPRequest(ctx, http.MethodGet, a.batchURL+"/"+batchID+"/results", nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: build anthropic fetch request: %w", err)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oracle: read anthropic fetch response: %w", err)
	}

	results := make(map[string]string)
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry anthropicBatchResultLine
		if err := json.Unmarshal(line, &entry); err != nil {
			slog.Warn("oracle: skipping malformed anthropic batch result line", slog.String("error", err.Error()))
			continue
		}
		for _, block := range entry.Result.Message.Content {
			if block.Type == "text" {
				results[entry.CustomID] = block.Text
				break
			}
		}
	}
	return results, nil
}
