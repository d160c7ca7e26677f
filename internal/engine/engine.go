package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// ContentGenerator produces validated AI content for a prompt pair.
type ContentGenerator interface {
	Generate(ctx context.Context, system, user string, exp Expectation) (*AIContent, error)
}

// ArtifactPublisher stores a finished artifact.
type ArtifactPublisher interface {
	Publish(path string, data []byte) error
}

// Generator is the daily pipeline: roster and calendar into context, context
// into prompt, prompt into AI content, content into the published document.
type Generator struct {
	Clock     Clock
	Settings  *config.Settings
	Calendar  CalendarSource
	Gateway   ContentGenerator
	Publisher ArtifactPublisher
	Labels    Labeler
}

// Prepared is everything computed before the AI call.
type Prepared struct {
	Context     *DailyContext
	UserPrompt  string
	Expectation Expectation
}

// Prepare builds the context and the user prompt for the current day.
func (g *Generator) Prepare(ctx context.Context) (*Prepared, error) {
	if g.Settings == nil {
		return nil, errors.New(config.ErrConfigInvalid)
	}
	today := g.Clock.Now().In(g.Settings.Location())

	people, err := Roster(g.Settings)
	if err != nil {
		return nil, err
	}

	agg := &Aggregator{Calendar: g.Calendar}
	dc, err := agg.Build(ctx, g.Settings, people, today)
	if err != nil {
		return nil, err
	}

	exp := Expectation{HasPets: len(dc.Pets) > 0}
	for _, p := range dc.People {
		exp.People = append(exp.People, p.Name)
	}

	prompt := BuildUserPrompt(dc)
	slog.Info(config.MsgPromptBuilt,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyChars, len(prompt))

	return &Prepared{Context: dc, UserPrompt: prompt, Expectation: exp}, nil
}

// Run executes one generation cycle. When the gateway gives up, the error
// wraps ErrContentUnavailable and nothing is published.
func (g *Generator) Run(ctx context.Context) (*Document, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompEngine)
	log.InfoContext(ctx, config.MsgRunStarted)

	prep, err := g.Prepare(ctx)
	if err != nil {
		return nil, err
	}

	content, err := g.Gateway.Generate(ctx, SystemPrompt, prep.UserPrompt, prep.Expectation)
	if err != nil {
		return nil, err
	}

	doc := BuildDocument(prep.Context, content, g.Clock.Now(), g.Labels)
	data, err := doc.Encode()
	if err != nil {
		return nil, err
	}

	if err := g.Publisher.Publish(g.Settings.DataFile, data); err != nil {
		return nil, err
	}

	// The dashboard is already live, so a calendar failure does not fail the run.
	if g.Settings.ICSFile != "" {
		if err := g.exportCountdowns(prep.Context); err != nil {
			log.Warn(config.MsgICSExportFailed,
				config.LogKeyPath, g.Settings.ICSFile,
				config.LogKeyError, err)
		}
	}

	log.Info(config.MsgRunFinished,
		config.LogKeyDuration, time.Since(start).Milliseconds(),
		config.LogKeyPath, g.Settings.DataFile)
	return doc, nil
}

func (g *Generator) exportCountdowns(dc *DailyContext) error {
	ics, err := CountdownCalendar(dc, g.Settings.ICSReminder, g.Clock.Now())
	if err != nil {
		return err
	}
	return g.Publisher.Publish(g.Settings.ICSFile, ics)
}
