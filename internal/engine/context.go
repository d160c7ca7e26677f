package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// BirthdayInfo is a person's countdown as of today.
type BirthdayInfo struct {
	Name        string
	Sex         string
	Interests   string
	Image       string
	DateOfBirth time.Time

	Age       int
	Turning   int
	DaysUntil int
	Next      time.Time
}

// SpecialDateInfo is a special date's countdown as of today.
type SpecialDateInfo struct {
	Title     string
	Emoji     string
	DaysUntil int
	Next      time.Time
}

// ChoreAssignment is today's assignee for a recurring chore.
type ChoreAssignment struct {
	Emoji      string `json:"emoji"`
	Title      string `json:"title"`
	AssignedTo string `json:"assigned_to"`
	Image      string `json:"image"`
}

// DailyContext is everything the prompt and the document are built from.
// It is a pure function of the settings, the roster, the calendar result
// and Today.
type DailyContext struct {
	Today     time.Time
	DayOfYear int // ordinal, Jan 1 = 1
	DaysAhead int

	People       []BirthdayInfo
	Pets         []config.Pet
	Chores       []ChoreAssignment
	SpecialDates []SpecialDateInfo
	Calendar     CalendarResult
}

// Aggregator combines the static roster with today's arithmetic and the
// calendar feed.
type Aggregator struct {
	Calendar CalendarSource
}

// Build assembles the context for today. Roster defects are returned as
// errors; calendar trouble never is.
func (a *Aggregator) Build(ctx context.Context, s *config.Settings, people []config.Person, today time.Time) (*DailyContext, error) {
	log := slog.With(config.LogKeyComponent, config.CompEngine)

	dc := &DailyContext{
		Today:     today,
		DayOfYear: today.YearDay(),
		DaysAhead: s.CalendarDaysAhead,
		Pets:      s.Pets,
	}

	var err error
	if dc.People, err = BirthdayInfos(people, today); err != nil {
		return nil, err
	}
	for _, b := range dc.People {
		if b.DaysUntil == 0 {
			log.Info(config.MsgBdayToday,
				config.LogKeyName, b.Name,
				config.LogKeyDOB, b.DateOfBirth.Format(config.DateFormatISODate))
		}
	}

	dc.SpecialDates = SpecialDateInfos(s.SpecialDates, today)

	if dc.Chores, err = ChoreAssignments(s.Recurring, people, today); err != nil {
		return nil, err
	}

	dc.Calendar = CalendarResult{Events: []CalendarEvent{}, Status: CalendarNotConfigured}
	if a.Calendar != nil {
		dc.Calendar = a.Calendar.Events(ctx, CalendarQuery{
			URL:               s.CalendarURL,
			DaysAhead:         s.CalendarDaysAhead,
			RequiredAttendees: s.CalendarFilterEmails,
			Today:             today,
			Location:          today.Location(),
		})
	}

	log.Info(config.MsgContextBuilt,
		config.LogKeyDate, today.Format(config.DateFormatISODate),
		config.LogKeyPeople, len(dc.People),
		config.LogKeyChores, len(dc.Chores),
		config.LogKeyEvents, len(dc.Calendar.Events),
		config.LogKeyCalStatus, string(dc.Calendar.Status))

	return dc, nil
}

// BirthdayInfos computes every person's countdown, in roster order.
func BirthdayInfos(people []config.Person, today time.Time) ([]BirthdayInfo, error) {
	out := make([]BirthdayInfo, 0, len(people))
	for _, p := range people {
		if p.DateOfBirth.IsZero() {
			return nil, fmt.Errorf("%s: %q", config.ErrMissingDOB, p.Name)
		}
		dob := p.DateOfBirth.Time
		occ, turning := NextBirthday(dob, today)
		out = append(out, BirthdayInfo{
			Name:        p.Name,
			Sex:         p.Sex,
			Interests:   strings.TrimSpace(p.Interests),
			Image:       p.Image,
			DateOfBirth: dob,
			Age:         Age(dob, today),
			Turning:     turning,
			DaysUntil:   occ.DaysUntil,
			Next:        occ.Date,
		})
	}
	return out, nil
}

// SpecialDateInfos computes every special date's countdown, in input order.
func SpecialDateInfos(dates []config.SpecialDate, today time.Time) []SpecialDateInfo {
	out := make([]SpecialDateInfo, 0, len(dates))
	for _, sd := range dates {
		occ := NextOccurrence(sd.Date.Month, sd.Date.Day, today)
		out = append(out, SpecialDateInfo{
			Title:     sd.Title,
			Emoji:     sd.Emoji,
			DaysUntil: occ.DaysUntil,
			Next:      occ.Date,
		})
	}
	return out
}

// ChoreAssignments rotates each chore by today's day offset. The image is
// the assignee's, or empty when the name is not in the roster.
func ChoreAssignments(chores []config.Chore, people []config.Person, today time.Time) ([]ChoreAssignment, error) {
	images := make(map[string]string, len(people))
	for _, p := range people {
		images[p.Name] = p.Image
	}

	offset := DayOffset(today)
	out := make([]ChoreAssignment, 0, len(chores))
	for _, c := range chores {
		idx := RotationIndex(offset, len(c.Choices))
		if idx < 0 {
			return nil, fmt.Errorf("%s: %q", config.ErrEmptyChoices, c.Title)
		}
		name := c.Choices[idx]
		out = append(out, ChoreAssignment{
			Emoji:      c.Emoji,
			Title:      c.Title,
			AssignedTo: name,
			Image:      images[name],
		})
	}
	return out, nil
}
