package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tartampluch/go-dailydash/internal/config"
	"github.com/tartampluch/go-dailydash/internal/llm"
	"github.com/tidwall/jsonc"
)

// ErrContentUnavailable means no attempt produced acceptable content.
// Nothing may be published after it.
var ErrContentUnavailable = errors.New(config.ErrAIExhausted)

// AIContent is the structured payload requested by SystemPrompt.
type AIContent struct {
	Headline        string            `json:"headline"`
	FunFact         string            `json:"fun_fact"`
	DailyChallenge  string            `json:"daily_challenge"`
	People          []PersonMessage   `json:"people"`
	Events          []EventCommentary `json:"events"`
	ChoreCommentary string            `json:"chore_commentary"`
	PetCorner       string            `json:"pet_corner"`
}

type PersonMessage struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	FunTidbit string `json:"fun_tidbit"`
}

type EventCommentary struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Commentary string `json:"commentary"`
}

// Expectation is what a response must agree with to be accepted.
type Expectation struct {
	// People lists the roster names in prompt order.
	People  []string
	HasPets bool
}

// ContentGateway turns prompts into validated AIContent.
type ContentGateway struct {
	Provider    llm.Provider
	Model       string
	MaxTokens   int
	MaxAttempts int
}

// decision says what to do after a failed attempt.
type decision int

const (
	retry decision = iota
	abort
)

// decide treats cancellation of the run as final. Every other failure,
// whether transport, service status, decoding or schema, is worth another
// attempt.
func decide(ctx context.Context, err error) decision {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return abort
	}
	return retry
}

// Generate runs at most MaxAttempts attempts and returns the first content
// that parses and validates. Content is accepted whole or not at all.
func (g *ContentGateway) Generate(ctx context.Context, system, user string, exp Expectation) (*AIContent, error) {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = config.MaxAIAttempts
	}
	log := slog.With(
		config.LogKeyComponent, config.CompGateway,
		config.LogKeyModel, g.Model,
		config.LogKeyPromptVer, config.SystemPromptVersion,
	)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		log.Info(config.MsgAICalling,
			config.LogKeyAttempt, attempt,
			config.LogKeyMaxTokens, g.MaxTokens)

		content, err := g.attempt(ctx, system, user, exp)
		if err == nil {
			log.Info(config.MsgAIAccepted,
				config.LogKeyAttempt, attempt,
				config.LogKeyDuration, time.Since(start).Milliseconds())
			return content, nil
		}

		lastErr = err
		log.Warn(config.MsgAIAttemptFailed,
			config.LogKeyAttempt, attempt,
			config.LogKeyError, err)

		if decide(ctx, err) == abort {
			break
		}
	}

	log.Error(config.MsgAIExhausted, config.LogKeyError, lastErr)
	return nil, fmt.Errorf("%w: %w", ErrContentUnavailable, lastErr)
}

func (g *ContentGateway) attempt(ctx context.Context, system, user string, exp Expectation) (*AIContent, error) {
	if g.Provider == nil {
		return nil, errors.New(config.ErrProviderMissing)
	}

	resp, err := g.Provider.Complete(ctx, llm.Request{
		Model:     g.Model,
		MaxTokens: g.MaxTokens,
		System:    system,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: user}},
	})
	if err != nil {
		return nil, err
	}

	content, err := ParseContent(resp.Text())
	if err != nil {
		return nil, err
	}
	if err := content.Validate(exp); err != nil {
		return nil, err
	}
	return content, nil
}

// ParseContent decodes a raw model reply. Markdown fences, prose around the
// object, comments and trailing commas are tolerated.
func ParseContent(raw string) (*AIContent, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, errors.New(config.ErrAIEmpty)
	}

	if first, last := strings.IndexByte(cleaned, '{'), strings.LastIndexByte(cleaned, '}'); first >= 0 && last > first {
		cleaned = cleaned[first : last+1]
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(cleaned))))
	var content AIContent
	if err := dec.Decode(&content); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrAIResponse, err)
	}
	if content.People == nil {
		content.People = []PersonMessage{}
	}
	if content.Events == nil {
		content.Events = []EventCommentary{}
	}
	return &content, nil
}

// StripFences removes a leading ``` line (with any info string) and a
// trailing ``` line.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	lines := strings.Split(cleaned, "\n")[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Validate checks the content against the schema and the roster.
func (c *AIContent) Validate(exp Expectation) error {
	var errs []error

	required := []struct{ field, value string }{
		{"headline", c.Headline},
		{"fun_fact", c.FunFact},
		{"daily_challenge", c.DailyChallenge},
		{"chore_commentary", c.ChoreCommentary},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", r.field))
		}
	}

	if exp.HasPets && strings.TrimSpace(c.PetCorner) == "" {
		errs = append(errs, errors.New("pet_corner is empty"))
	}

	if len(c.People) != len(exp.People) {
		errs = append(errs, fmt.Errorf("people has %d entries, want %d", len(c.People), len(exp.People)))
	} else {
		for i, want := range exp.People {
			if !strings.EqualFold(strings.TrimSpace(c.People[i].Name), strings.TrimSpace(want)) {
				errs = append(errs, fmt.Errorf("people[%d] is %q, want %q", i, c.People[i].Name, want))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %w", config.ErrAISchema, errors.Join(errs...))
	}
	return nil
}
