package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// SystemPrompt fixes the response schema. ParseContent and Validate depend on
// this exact shape; bump config.SystemPromptVersion when it changes.
const SystemPrompt = `You are DailyDash, a friendly family dashboard AI. You create fun, warm, ` +
	`age-appropriate daily content for a family. The family has young children ` +
	`so all content should be suitable for kids, using simple language they can ` +
	`understand.

You MUST respond with valid JSON only. No markdown, no code fences, no ` +
	`explanation. Use this exact structure:

{
  "headline": "A fun, short daily greeting (max 10 words)",
  "fun_fact": "An interesting, kid-friendly fact of the day (2-3 sentences)",
  "daily_challenge": "A fun family challenge or question for today",
  "people": [
    {
      "name": "PersonName",
      "message": "A personalized, encouraging message (1-2 sentences)",
      "fun_tidbit": "A fun fact or joke related to their interests"
    }
  ],
  "events": [
    {
      "title": "Event name",
      "date": "Human-readable date",
      "commentary": "A witty or fun remark about this event (1 sentence)"
    }
  ],
  "chore_commentary": "A brief, encouraging comment about today's chore assignments",
  "pet_corner": "A fun fact or silly comment about the family pets"
}

The "people" array must contain one entry per family member, in the same ` +
	`order as provided. The "events" array should cover the calendar events ` +
	`provided. If no calendar events are given, use an empty array for "events".`

const closingInstruction = "Please generate today's dashboard content. Be warm, funny, and " +
	"encouraging. Make personalized messages age-appropriate. Keep the " +
	"headline punchy. If any birthday is within %d days, make it " +
	"prominently celebrated."

// BuildUserPrompt renders the context as the user instruction. The output
// depends only on dc.
func BuildUserPrompt(dc *DailyContext) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("Today is %s. Day %d of the year.", dc.Today.Format(config.DateFormatTodayLong), dc.DayOfYear)
	line("")
	line("FAMILY MEMBERS:")
	for _, p := range dc.People {
		line("- %s (%s, age %d, turning %d in %d days)", p.Name, p.Sex, p.Age, p.Turning, p.DaysUntil)
		if p.Interests != "" {
			line("  Interests: %s", p.Interests)
		}
	}

	if len(dc.Pets) > 0 {
		line("")
		line("PETS:")
		for _, pet := range dc.Pets {
			line("- %s the %s", pet.Name, pet.Type)
		}
	}

	line("")
	line("TODAY'S CHORE ASSIGNMENTS:")
	for _, c := range dc.Chores {
		line("- %s %s: %s's turn", c.Emoji, c.Title, c.AssignedTo)
	}

	birthdays := append([]BirthdayInfo(nil), dc.People...)
	sort.SliceStable(birthdays, func(i, j int) bool { return birthdays[i].DaysUntil < birthdays[j].DaysUntil })

	line("")
	line("UPCOMING BIRTHDAYS:")
	for _, p := range birthdays {
		if p.DaysUntil == 0 {
			line("- %s turns %d TODAY!", p.Name, p.Turning)
			continue
		}
		line("- %s turns %d in %d days (%s)", p.Name, p.Turning, p.DaysUntil, p.Next.Format(config.DateFormatMonthDay))
	}

	if len(dc.Calendar.Events) > 0 {
		line("")
		line("UPCOMING CALENDAR EVENTS (next %d days):", dc.DaysAhead)
		for _, ev := range dc.Calendar.Events {
			where := ""
			if ev.Location != nil {
				where = " at " + *ev.Location
			}
			line("- %s on %s%s", ev.Summary, ev.Date, where)
		}
	}

	if len(dc.SpecialDates) > 0 {
		special := append([]SpecialDateInfo(nil), dc.SpecialDates...)
		sort.SliceStable(special, func(i, j int) bool { return special[i].DaysUntil < special[j].DaysUntil })

		line("")
		line("SPECIAL DATE COUNTDOWNS:")
		for _, sd := range special {
			line("- %s %s: %d days away (%s)", sd.Emoji, sd.Title, sd.DaysUntil, sd.Next.Format(config.DateFormatMonthDay))
		}
	}

	line("")
	fmt.Fprintf(&b, closingInstruction, config.CelebrationWindow)

	return b.String()
}
