// Generation backend client.
//
// The backend accepts a role-tagged message list plus a system prompt and
// answers either with the newline-delimited event stream consumed by the
// stream package or, for non-streaming deployments, a single JSON body.
// The client does not retry: a failed call surfaces once and the caller
// converts it into a user-facing error reply.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is the outbound generation call.
type GenerateRequest struct {
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Goals     []string  `json:"goals,omitempty"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream"`
}

// Generator abstracts the backend so the service can be tested against a
// fake. Generate returns the response body (caller closes it) and whether
// the body is event-framed rather than a single JSON document.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (io.ReadCloser, bool, error)
}

// Client calls the generation backend over HTTP.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string

	httpc *http.Client
}

// NewClient constructs a Client with a bounded per-call timeout. The timeout
// covers connection and headers; streamed bodies are read under the request
// context instead.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Generate posts the request and hands back the raw body stream. The second
// return value reports event framing, detected from the Content-Type.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (io.ReadCloser, bool, error) {
	payload := map[string]any{
		"model":      c.Model,
		"messages":   req.Messages,
		"stream":     req.Stream,
		"max_tokens": req.MaxTokens,
	}
	if req.System != "" {
		payload["system"] = req.System
	}
	if len(req.Goals) > 0 {
		payload["goals"] = req.Goals
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, false, backendError(resp)
	}

	streaming := strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream")
	return resp.Body, streaming, nil
}

// backendError extracts the backend's error message when it sent one,
// falling back to the HTTP status line.
func backendError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if err != nil || len(data) == 0 {
		return fmt.Errorf("generation backend: %s", resp.Status)
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		return errors.New(payload.Error.Message)
	}
	return fmt.Errorf("generation backend: %s", resp.Status)
}
