package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-dailydash/internal/config"
)

// Roster returns the configured people followed by those imported from
// PeopleVCard, if set.
func Roster(s *config.Settings) ([]config.Person, error) {
	people := append([]config.Person(nil), s.People...)
	if s.PeopleVCard == "" {
		return people, nil
	}

	f, err := os.Open(s.PeopleVCard)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRosterRead, err)
	}
	defer func() { _ = f.Close() }()

	imported := ImportVCard(f, people)
	slog.Info(config.MsgRosterImported,
		config.LogKeyComponent, config.CompRoster,
		config.LogKeyFile, s.PeopleVCard,
		config.LogKeyCount, len(imported))

	return append(people, imported...), nil
}

// ImportVCard decodes people from a vCard stream. Cards need a formatted
// name and a full birth date. Names already in existing are skipped.
func ImportVCard(r io.Reader, existing []config.Person) []config.Person {
	log := slog.With(config.LogKeyComponent, config.CompRoster)

	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.Name] = true
	}

	decoder := vcard.NewDecoder(r)
	stats := struct{ processed, found int }{}
	var out []config.Person

	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep going so one bad card does not hide the rest.
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			continue
		}
		stats.processed++

		name := strings.TrimSpace(card.Value(config.VCardFN))
		bday := card.Get(config.VCardBDAY)
		if name == "" || bday == nil || bday.Value == "" {
			continue
		}

		dob, yearKnown, err := parseDate(bday.Value)
		if err != nil || !yearKnown {
			log.Debug(config.MsgSkippedDate,
				config.LogKeyName, name,
				config.LogKeyValue, bday.Value)
			continue
		}

		if seen[name] {
			log.Debug(config.MsgSkippedDuplicate, config.LogKeyName, name)
			continue
		}
		seen[name] = true
		stats.found++

		out = append(out, config.Person{
			Name:        name,
			DateOfBirth: config.Date{Time: dob},
			Sex:         sexOf(card),
			Interests:   strings.TrimSpace(card.Value(config.VCardNote)),
			Image:       photoOf(card),
		})
	}

	log.Debug("vCard decoded",
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, stats.processed),
			slog.Int(config.LogKeyFound, stats.found),
		))
	return out
}

// sexOf prefers the free-form gender identity and falls back to the sex
// component.
func sexOf(card vcard.Card) string {
	if card.Get(config.VCardGender) == nil {
		return ""
	}
	sex, identity := card.Gender()
	if identity = strings.TrimSpace(identity); identity != "" {
		return identity
	}
	switch sex {
	case vcard.SexMale:
		return config.SexMale
	case vcard.SexFemale:
		return config.SexFemale
	}
	return ""
}

// photoOf returns the PHOTO reference when it is a URI. Inline binary
// photos are ignored.
func photoOf(card vcard.Card) string {
	f := card.Get(config.VCardPhoto)
	if f == nil || f.Params.Get(config.VCardEncoding) != "" {
		return ""
	}
	v := strings.TrimSpace(f.Value)
	if strings.HasPrefix(strings.ToLower(v), config.DataURIPrefix) {
		return ""
	}
	return v
}

// parseDate handles the vCard date forms. yearKnown is false for the
// truncated --MMDD forms, which are anchored on a leap year.
func parseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true, nil
		}
	}

	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("%s: %q", config.ErrDateParse, value)
}
