package engine

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-dailydash/internal/config"
)

// CountdownCalendar exports every countdown as an all-day event on its next
// occurrence, so the family can subscribe from a phone calendar.
func CountdownCalendar(dc *DailyContext, reminderTrigger string, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// Extension property: raw value, so clients matching "X-WR-CALNAME:" see it.
	nameProp := ical.NewProp(config.PropXWRCalName)
	nameProp.Value = config.ICalCalName
	cal.Props.Set(nameProp)

	// RFC 7986 refresh hint. VALUE=DURATION is mandatory for this property.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	refreshProp.Params.Set(ical.ParamValue, string(ical.ValueDuration))
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, p := range dc.People {
		title := fmt.Sprintf(config.BirthdayTitleFormat, p.Name)
		cal.Children = append(cal.Children, countdownEvent(title, config.BirthdayEmoji, p.Next, reminderTrigger, dtStampProp).Component)
	}
	for _, sd := range dc.SpecialDates {
		cal.Children = append(cal.Children, countdownEvent(sd.Title, sd.Emoji, sd.Next, reminderTrigger, dtStampProp).Component)
	}

	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

func countdownEvent(title, emoji string, date time.Time, reminderTrigger string, dtStamp *ical.Prop) *ical.Event {
	// Deterministic UID so subscribers update rather than duplicate.
	input := fmt.Sprintf(config.FormatHashInput, title, date.Format(config.DateFormatISODate), config.UIDSalt)
	hash := sha256.Sum256([]byte(input))
	uidBase := fmt.Sprintf("%x", hash[:config.UIDHashLength])

	summary := strings.TrimSpace(emoji + " " + title)

	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uidBase, date.Year(), config.ICalDomain))
	event.Props.SetText(config.PropSummary, summary)
	event.Props.Set(dtStamp)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(date)
	event.Props.Set(dtStartProp)

	if reminderTrigger != "" {
		addAlarm(event, reminderTrigger, summary)
	}
	return event
}

// addAlarm appends a DISPLAY alarm to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set the raw value so no VALUE=TEXT parameter is emitted.
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
