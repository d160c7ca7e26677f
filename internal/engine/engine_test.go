package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-dailydash/internal/config"
	"github.com/tartampluch/go-dailydash/internal/engine"
	"github.com/tartampluch/go-dailydash/internal/locale"
	"github.com/tartampluch/go-dailydash/internal/publish"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

// SpyPublisher records artifacts instead of writing them. Err fails every
// call; FailPath fails only writes to that path.
type SpyPublisher struct {
	Calls    map[string][]byte
	Err      error
	FailPath string
}

func (s *SpyPublisher) Publish(path string, data []byte) error {
	if s.Calls == nil {
		s.Calls = map[string][]byte{}
	}
	s.Calls[path] = data
	if s.FailPath != "" && path == s.FailPath {
		return errors.New("read-only calendar directory")
	}
	return s.Err
}

func newGenerator(t *testing.T, p *MockProvider, pub engine.ArtifactPublisher) (*engine.Generator, *config.Settings) {
	t.Helper()
	dir := t.TempDir()
	s := mustSettings(t, familySettings+"ics_reminder: \"-PT9H\"\n")
	s.DataFile = filepath.Join(dir, "out", "dashboard_data.json")
	s.ICSFile = filepath.Join(dir, "out", "countdowns.ics")

	labels, err := locale.New("en")
	require.NoError(t, err)

	cal := &StubCalendar{Result: engine.CalendarResult{
		Status: engine.CalendarOK,
		Events: []engine.CalendarEvent{{Summary: "Recital", Date: "Tuesday, June 18 at 05:00 PM"}},
	}}

	return &engine.Generator{
		Clock:     MockClock{CurrentTime: june15},
		Settings:  s,
		Calendar:  cal,
		Gateway:   gateway(p),
		Publisher: pub,
		Labels:    labels,
	}, s
}

// Three people are rostered, so the accepted reply must address all three.
const familyContent = `{
  "headline": "Happy Birthday, Alice!",
  "fun_fact": "Octopuses have three hearts.",
  "daily_challenge": "Draw a dinosaur.",
  "people": [
    {"name": "Alice", "message": "Happy 9th!", "fun_tidbit": "Dinos rule."},
    {"name": "Bob", "message": "Dish duty hero.", "fun_tidbit": "Knock knock."},
    {"name": "Charlie", "message": "Coffee time.", "fun_tidbit": "Dad joke."}
  ],
  "events": [{"title": "Recital", "date": "Tuesday, June 18", "commentary": "Break a leg!"}],
  "chore_commentary": "Bob has the dishes.",
  "pet_corner": "Rex approves."
}`

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRun_PublishesDocument(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything).Return(reply("```json\n"+familyContent+"\n```"), nil).Once()

	gen, s := newGenerator(t, p, publish.New())

	doc, err := gen.Run(context.Background())
	require.NoError(t, err)
	p.AssertExpectations(t)

	assert.Equal(t, "2024-06-15", doc.GeneratedDate)
	require.NotEmpty(t, doc.Countdowns)
	assert.Equal(t, "Alice's Birthday", doc.Countdowns[0].Title)
	assert.Equal(t, 0, doc.Countdowns[0].Days)
	assert.Equal(t, "Today!", doc.Countdowns[0].Label)
	assert.Equal(t, "Tomorrow", doc.Countdowns[1].Label)

	data, err := os.ReadFile(s.DataFile)
	require.NoError(t, err)

	var published struct {
		Chores     []engine.ChoreAssignment `json:"chores"`
		Countdowns []engine.Countdown       `json:"countdowns"`
		AIContent  engine.AIContent         `json:"ai_content"`
	}
	require.NoError(t, json.Unmarshal(data, &published))
	assert.Equal(t, "Bob", published.Chores[0].AssignedTo)
	assert.Equal(t, "Happy Birthday, Alice!", published.AIContent.Headline)

	var christmas *engine.Countdown
	for i := range published.Countdowns {
		if published.Countdowns[i].Title == "Christmas" {
			christmas = &published.Countdowns[i]
		}
	}
	require.NotNil(t, christmas)
	assert.Equal(t, 193, christmas.Days)
	assert.Equal(t, "193 days", christmas.Label)

	ics, err := os.ReadFile(s.ICSFile)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "BEGIN:VCALENDAR")
}

func TestRun_ExhaustionPublishesNothing(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("service unavailable"))

	spy := &SpyPublisher{}
	gen, _ := newGenerator(t, p, spy)

	doc, err := gen.Run(context.Background())

	assert.Nil(t, doc)
	require.ErrorIs(t, err, engine.ErrContentUnavailable)
	assert.Empty(t, spy.Calls, "The previous artifact must stay untouched")
	p.AssertNumberOfCalls(t, "Complete", config.MaxAIAttempts)
}

func TestRun_PreservesPreviousArtifact(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything).Return(reply("{}"), nil)

	gen, s := newGenerator(t, p, publish.New())
	require.NoError(t, os.MkdirAll(filepath.Dir(s.DataFile), config.DirPermPublic))
	require.NoError(t, os.WriteFile(s.DataFile, []byte(`{"previous":true}`), config.FilePermPublic))

	_, err := gen.Run(context.Background())
	require.Error(t, err)

	data, err := os.ReadFile(s.DataFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"previous":true}`, string(data))
}

func TestRun_PublishFailure(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything).Return(reply(familyContent), nil)

	spy := &SpyPublisher{Err: errors.New("disk full")}
	gen, _ := newGenerator(t, p, spy)

	_, err := gen.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, engine.ErrContentUnavailable)
	assert.Len(t, spy.Calls, 1, "The calendar export is skipped once the document fails")
}

func TestRun_CalendarExportFailureKeepsDocument(t *testing.T) {
	p := new(MockProvider)
	p.On("Complete", mock.Anything, mock.Anything).Return(reply(familyContent), nil)

	spy := &SpyPublisher{}
	gen, s := newGenerator(t, p, spy)
	spy.FailPath = s.ICSFile

	doc, err := gen.Run(context.Background())

	require.NoError(t, err, "A published dashboard is a successful run")
	require.NotNil(t, doc)
	assert.Contains(t, spy.Calls, s.DataFile)
	assert.Contains(t, spy.Calls, s.ICSFile, "The export was attempted")
}

func TestPrepare(t *testing.T) {
	gen, _ := newGenerator(t, new(MockProvider), &SpyPublisher{})

	prep, err := gen.Prepare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, prep.Expectation.People)
	assert.True(t, prep.Expectation.HasPets)
	assert.Contains(t, prep.UserPrompt, "Today is Saturday, June 15, 2024. Day 167 of the year.")
	assert.Contains(t, prep.UserPrompt, "- Recital on Tuesday, June 18 at 05:00 PM")
}

func TestPrepare_UsesConfiguredZone(t *testing.T) {
	gen, s := newGenerator(t, new(MockProvider), &SpyPublisher{})
	s.Timezone = "Asia/Tokyo"
	require.NoError(t, s.Validate())

	// 20:00 UTC on June 14 is already June 15 in Tokyo.
	gen.Clock = MockClock{CurrentTime: time.Date(2024, time.June, 14, 20, 0, 0, 0, time.UTC)}

	prep, err := gen.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", prep.Context.Today.Location().String())
	assert.Equal(t, 15, prep.Context.Today.Day())
}
