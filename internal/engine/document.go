package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// Labeler renders the display label of a countdown.
type Labeler interface {
	Label(days int) string
}

// Countdown is one entry of the unified birthday and special date list.
type Countdown struct {
	Emoji string  `json:"emoji"`
	Title string  `json:"title"`
	Days  int     `json:"days"`
	Image *string `json:"image"`
	Label string  `json:"label"`
}

// Document is the published dashboard artifact.
type Document struct {
	GeneratedAt    string            `json:"generated_at"`
	GeneratedDate  string            `json:"generated_date"`
	TodayDisplay   string            `json:"today_display"`
	PeopleImages   map[string]string `json:"people_images"`
	Chores         []ChoreAssignment `json:"chores"`
	Countdowns     []Countdown       `json:"countdowns"`
	CalendarEvents []CalendarEvent   `json:"calendar_events"`
	AIContent      *AIContent        `json:"ai_content"`
}

// BuildDocument merges the accepted AI content with the computed context.
// now stamps generated_at; every other field derives from dc.
func BuildDocument(dc *DailyContext, content *AIContent, now time.Time, labels Labeler) *Document {
	doc := &Document{
		GeneratedAt:    now.Format(time.RFC3339),
		GeneratedDate:  dc.Today.Format(config.DateFormatISODate),
		TodayDisplay:   dc.Today.Format(config.DateFormatToday),
		PeopleImages:   make(map[string]string, len(dc.People)),
		Chores:         dc.Chores,
		Countdowns:     Countdowns(dc, labels),
		CalendarEvents: dc.Calendar.Events,
		AIContent:      content,
	}
	for _, p := range dc.People {
		doc.PeopleImages[p.Name] = p.Image
	}

	if doc.Chores == nil {
		doc.Chores = []ChoreAssignment{}
	}
	if doc.CalendarEvents == nil {
		doc.CalendarEvents = []CalendarEvent{}
	}
	return doc
}

// Countdowns lists birthdays then special dates, each in roster order, and
// stable-sorts the result by days so ties keep that order.
func Countdowns(dc *DailyContext, labels Labeler) []Countdown {
	out := make([]Countdown, 0, len(dc.People)+len(dc.SpecialDates))
	for _, p := range dc.People {
		var image *string
		if p.Image != "" {
			img := p.Image
			image = &img
		}
		out = append(out, Countdown{
			Emoji: config.BirthdayEmoji,
			Title: fmt.Sprintf(config.BirthdayTitleFormat, p.Name),
			Days:  p.DaysUntil,
			Image: image,
		})
	}
	for _, sd := range dc.SpecialDates {
		out = append(out, Countdown{
			Emoji: sd.Emoji,
			Title: sd.Title,
			Days:  sd.DaysUntil,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Days < out[j].Days })

	if labels != nil {
		for i := range out {
			out[i].Label = labels.Label(out[i].Days)
		}
	}
	return out
}

// Encode renders the document as indented JSON with a trailing newline.
// Emoji and '&' are kept literal for the front-end and for diffs.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrEncodeDocument, err)
	}
	return buf.Bytes(), nil
}
