package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// Anthropic implements Provider for the Anthropic Messages API.
type Anthropic struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Version string
}

// NewAnthropic creates a client bounded by config.AITimeout. An empty
// baseURL targets the public API.
func NewAnthropic(baseURL, apiKey string) *Anthropic {
	if baseURL == "" {
		baseURL = config.DefaultAPIBaseURL
	}
	return &Anthropic{
		Client:  &http.Client{Timeout: config.AITimeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Version: config.DefaultAPIVersion,
	}
}

// Complete sends a non-streaming request and returns the full response.
func (a *Anthropic) Complete(ctx context.Context, request Request) (*Response, error) {
	start := time.Now()
	log := slog.With(
		config.LogKeyComponent, config.CompLLM,
		config.LogKeyModel, request.Model,
	)

	headers := http.Header{}
	headers.Set(config.HeaderAPIKey, a.APIKey)
	headers.Set(config.HeaderAnthropicVersion, a.Version)

	resp, err := doRequest(ctx, a.Client, a.BaseURL+config.MessagesPath, headers, buildRequest(request))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var wire anthropicResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, config.MaxHTTPResponseSize)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrAIResponseDecode, err)
	}

	out := wire.toResponse()
	log.Debug("Completion received",
		config.LogKeyDuration, time.Since(start).Milliseconds(),
		"input_tokens", out.Usage.InputTokens,
		"output_tokens", out.Usage.OutputTokens,
		"stop_reason", out.StopReason)
	return out, nil
}

func buildRequest(request Request) anthropicRequest {
	wire := anthropicRequest{
		Model:     request.Model,
		MaxTokens: request.MaxTokens,
		System:    request.System,
		Messages:  make([]anthropicMessage, 0, len(request.Messages)),
	}
	for _, m := range request.Messages {
		wire.Messages = append(wire.Messages, anthropicMessage{
			Role:    string(m.Role),
			Content: []anthropicContentBlock{{Type: "text", Text: m.Content}},
		})
	}
	return wire
}

// --- Wire types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// toResponse keeps text blocks only; this client never offers tools.
func (w *anthropicResponse) toResponse() *Response {
	out := &Response{
		Model:      w.Model,
		StopReason: w.StopReason,
		Usage: Usage{
			InputTokens:  w.Usage.InputTokens,
			OutputTokens: w.Usage.OutputTokens,
		},
	}
	for _, block := range w.Content {
		if block.Type == "text" {
			out.Content = append(out.Content, block.Text)
		}
	}
	return out
}
