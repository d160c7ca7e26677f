// Package llm is a minimal client for generative text services.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// Provider sends one request and blocks until the full response is
// available.
type Provider interface {
	Complete(ctx context.Context, request Request) (*Response, error)
}

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Only text content is supported.
type Message struct {
	Role    Role
	Content string
}

// Request carries a system instruction, the conversation, a model
// identifier and an output token bound.
type Request struct {
	Model     string
	MaxTokens int
	System    string
	Messages  []Message
}

// Usage reports token accounting for a response.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is the service reply.
type Response struct {
	Model      string
	StopReason string
	Content    []string
	Usage      Usage
}

// Text joins every text block of the response.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.Content, "")
}

// ProviderError is returned when the service answers with a non-200 status.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Type is the service error type (e.g. "overloaded_error").
	Type string

	// Message is the human-readable error description.
	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports an HTTP 429.
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// doRequest POSTs wireRequest as JSON. On success the caller closes the
// body; on error it is already closed.
func doRequest(ctx context.Context, client *http.Client, endpoint string, headers http.Header, wireRequest any) (*http.Response, error) {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrAIRequestEncode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrAIRequestCreate, err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set(config.HeaderContentType, config.MimeJSON)
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrAIRequestSend, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, readProviderError(resp)
	}
	return resp, nil
}

// readProviderError parses {"error":{"type":"...","message":"..."}} and
// falls back to the raw body.
func readProviderError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, config.MaxErrorBodySize))

	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Error.Message != "" {
		return &ProviderError{
			StatusCode: resp.StatusCode,
			Type:       wire.Error.Type,
			Message:    wire.Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}
