package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-dailydash/internal/config"
)

// CalendarEvent is one concrete occurrence shown on the dashboard.
type CalendarEvent struct {
	Summary     string  `json:"summary"`
	Date        string  `json:"date"`
	Location    *string `json:"location"`
	Description *string `json:"description"`

	// Start is the sort key. The formatted Date string is not chronological.
	Start  time.Time `json:"-"`
	AllDay bool      `json:"-"`
}

// CalendarStatus tells apart the reasons a run may end up with no events.
type CalendarStatus string

const (
	CalendarOK            CalendarStatus = "ok"
	CalendarNotConfigured CalendarStatus = "not_configured"
	CalendarFetchFailed   CalendarStatus = "fetch_failed"
	CalendarParseFailed   CalendarStatus = "parse_failed"
)

// CalendarResult is the outcome of one ingestion. Every failure collapses to
// an empty Events list; Status and Err keep the cause for logging.
type CalendarResult struct {
	Events   []CalendarEvent
	Status   CalendarStatus
	Filtered int
	Err      error
}

// CalendarQuery describes what to ingest.
type CalendarQuery struct {
	URL               string
	DaysAhead         int
	RequiredAttendees []string
	Today             time.Time
	Location          *time.Location
}

// window returns [start of today, start of the day after the last day).
func (q CalendarQuery) window() (time.Time, time.Time) {
	loc := q.location()
	y, m, d := q.Today.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, time.Date(y, m, d+q.DaysAhead+1, 0, 0, 0, 0, loc)
}

func (q CalendarQuery) location() *time.Location {
	if q.Location != nil {
		return q.Location
	}
	return time.Local
}

// CalendarSource yields the upcoming events for a run.
type CalendarSource interface {
	Events(ctx context.Context, q CalendarQuery) CalendarResult
}

// FeedCalendar ingests a remote iCalendar feed.
type FeedCalendar struct {
	Fetcher FeedFetcher
}

// Events fetches, expands and filters the feed. It never fails: calendar
// trouble degrades to an empty list so the run can still publish.
func (c *FeedCalendar) Events(ctx context.Context, q CalendarQuery) CalendarResult {
	log := slog.With(config.LogKeyComponent, config.CompCalendar)

	if strings.TrimSpace(q.URL) == "" {
		log.Info(config.MsgCalendarSkipped)
		return CalendarResult{Events: []CalendarEvent{}, Status: CalendarNotConfigured}
	}

	if c.Fetcher == nil {
		err := errors.New(config.ErrFetcherMissing)
		log.Warn(config.MsgCalendarFetchErr, config.LogKeyError, err)
		return CalendarResult{Events: []CalendarEvent{}, Status: CalendarFetchFailed, Err: err}
	}

	body, err := c.Fetcher.Fetch(ctx, q.URL)
	if err != nil {
		log.Warn(config.MsgCalendarFetchErr, config.LogKeyError, err)
		return CalendarResult{Events: []CalendarEvent{}, Status: CalendarFetchFailed, Err: err}
	}
	defer func() { _ = body.Close() }()

	events, filtered, err := ParseEvents(body, q)
	if err != nil {
		log.Warn(config.MsgCalendarParseErr, config.LogKeyError, err)
		return CalendarResult{Events: []CalendarEvent{}, Status: CalendarParseFailed, Err: err}
	}

	if u, perr := url.Parse(q.URL); perr == nil {
		log = log.With(config.LogKeyURL, SafeURL(u))
	}
	log.Info(config.MsgCalendarFetched,
		config.LogKeyCount, len(events),
		config.LogKeyDaysAhead, q.DaysAhead,
		config.LogKeyFiltered, filtered)

	return CalendarResult{Events: events, Status: CalendarOK, Filtered: filtered}
}

// ParseEvents decodes an iCalendar stream, expands recurring events into the
// query window and applies the attendee filter. It returns the surviving
// events sorted by start and the number dropped by the attendee filter.
func ParseEvents(r io.Reader, q CalendarQuery) ([]CalendarEvent, int, error) {
	var all []ical.Event
	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", config.ErrICalParse, err)
		}
		all = append(all, cal.Events()...)
	}

	loc := q.location()
	windowStart, windowEnd := q.window()
	required := normalizeEmails(q.RequiredAttendees)
	overridden := collectOverrides(all, loc)

	events := make([]CalendarEvent, 0)
	filtered := 0

	for i := range all {
		ev := &all[i]

		if status, _ := ev.Props.Text(config.PropStatus); strings.EqualFold(status, config.StatusCancelled) {
			continue
		}

		candidates, duration, allDay, ok := occurrences(ev, loc, windowStart, windowEnd, overridden)
		if !ok {
			continue
		}

		var starts []time.Time
		for _, start := range candidates {
			if overlapsWindow(start, duration, windowStart, windowEnd) {
				starts = append(starts, start)
			}
		}
		if len(starts) == 0 {
			continue
		}

		if len(required) > 0 && !hasAllAttendees(ev, required) {
			filtered += len(starts)
			continue
		}

		for _, start := range starts {
			events = append(events, project(ev, start, allDay, loc))
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, filtered, nil
}

// overlapsWindow reports whether an occurrence starting at start touches
// [windowStart, windowEnd).
func overlapsWindow(start time.Time, duration time.Duration, windowStart, windowEnd time.Time) bool {
	if !start.Before(windowEnd) {
		return false
	}
	return !start.Before(windowStart) || start.Add(duration).After(windowStart)
}

// occurrences lists the starts of ev that may touch the window, along with
// the event duration and whether it is an all-day event.
func occurrences(ev *ical.Event, loc *time.Location, windowStart, windowEnd time.Time, overridden map[string]bool) ([]time.Time, time.Duration, bool, bool) {
	startProp := ev.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		slog.Debug(config.MsgSkippedEvent, config.LogKeyComponent, config.CompCalendar)
		return nil, 0, false, false
	}
	allDay := startProp.ValueType() == ical.ValueDate

	start, err := ev.DateTimeStart(loc)
	if err != nil {
		slog.Debug(config.MsgSkippedEvent,
			config.LogKeyComponent, config.CompCalendar,
			config.LogKeyError, err)
		return nil, 0, false, false
	}

	duration := time.Duration(0)
	if end, err := ev.DateTimeEnd(loc); err == nil && end.After(start) {
		duration = end.Sub(start)
	} else if allDay {
		duration = 24 * time.Hour
	}

	// An exception instance stands alone; its master skips that slot.
	if ev.Props.Get(config.PropRecurrenceID) != nil {
		return []time.Time{start}, duration, allDay, true
	}

	set, err := ev.RecurrenceSet(loc)
	if err != nil {
		slog.Debug(config.MsgSkippedEvent,
			config.LogKeyComponent, config.CompCalendar,
			config.LogKeyError, err)
		return nil, 0, false, false
	}
	if set == nil {
		return []time.Time{start}, duration, allDay, true
	}

	uid, _ := ev.Props.Text(config.PropUID)
	var starts []time.Time
	for _, s := range set.Between(windowStart.Add(-duration), windowEnd, true) {
		if overridden[overrideKey(uid, s)] {
			continue
		}
		starts = append(starts, s)
	}
	return starts, duration, allDay, true
}

// collectOverrides indexes RECURRENCE-ID instances by UID and original start.
func collectOverrides(events []ical.Event, loc *time.Location) map[string]bool {
	out := make(map[string]bool)
	for i := range events {
		prop := events[i].Props.Get(config.PropRecurrenceID)
		if prop == nil {
			continue
		}
		rid, err := prop.DateTime(loc)
		if err != nil {
			continue
		}
		uid, _ := events[i].Props.Text(config.PropUID)
		out[overrideKey(uid, rid)] = true
	}
	return out
}

func overrideKey(uid string, t time.Time) string {
	return fmt.Sprintf("%s|%d", uid, t.Unix())
}

func normalizeEmails(emails []string) map[string]bool {
	out := make(map[string]bool, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out[e] = true
		}
	}
	return out
}

// attendeeEmails returns the lowercased addresses of ev's ATTENDEE entries.
func attendeeEmails(ev *ical.Event) map[string]bool {
	props := ev.Props.Values(ical.PropAttendee)
	out := make(map[string]bool, len(props))
	for _, p := range props {
		email := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(p.Value)), config.MailtoPrefix)
		if email != "" {
			out[email] = true
		}
	}
	return out
}

// hasAllAttendees is a subset test: every required address must attend.
func hasAllAttendees(ev *ical.Event, required map[string]bool) bool {
	present := attendeeEmails(ev)
	for email := range required {
		if !present[email] {
			return false
		}
	}
	return true
}

func project(ev *ical.Event, start time.Time, allDay bool, loc *time.Location) CalendarEvent {
	summary, _ := ev.Props.Text(ical.PropSummary)
	if strings.TrimSpace(summary) == "" {
		summary = config.FallbackSummary
	}

	date := start.In(loc).Format(config.DateFormatEventTimed)
	if allDay {
		date = start.Format(config.DateFormatEventAllDay)
	}

	return CalendarEvent{
		Summary:     summary,
		Date:        date,
		Location:    optionalText(ev, ical.PropLocation),
		Description: optionalText(ev, ical.PropDescription),
		Start:       start,
		AllDay:      allDay,
	}
}

func optionalText(ev *ical.Event, name string) *string {
	v, err := ev.Props.Text(name)
	if err != nil || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}
