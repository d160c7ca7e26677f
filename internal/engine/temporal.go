package engine

import "time"

// Occurrence is the next annual instance of a month/day relative to today.
type Occurrence struct {
	// Date is the civil date of the occurrence (midnight UTC).
	Date time.Time

	// DaysUntil is 0 when the occurrence is today, always < 366.
	DaysUntil int
}

// civilDate keeps the calendar date t shows in its own zone and drops the
// clock reading. Results are pinned to UTC so day arithmetic never crosses
// a DST transition.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(civilDate(to).Sub(civilDate(from)).Hours() / 24)
}

// Age returns the completed years between dob and today.
func Age(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// NextOccurrence finds month/day on or after today, rolling into next year
// once it has passed. Feb 29 in a common year is observed on Mar 1.
func NextOccurrence(month time.Month, day int, today time.Time) Occurrence {
	t := civilDate(today)

	// time.Date normalizes Feb 29 of a common year to Mar 1.
	candidate := time.Date(t.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if candidate.Before(t) {
		candidate = time.Date(t.Year()+1, month, day, 0, 0, 0, 0, time.UTC)
	}

	return Occurrence{
		Date:      candidate,
		DaysUntil: daysBetween(t, candidate),
	}
}

// NextBirthday returns the next birthday and the age turned on it.
// On the birthday itself the turning age equals the current age.
func NextBirthday(dob, today time.Time) (Occurrence, int) {
	occ := NextOccurrence(dob.Month(), dob.Day(), today)
	return occ, Age(dob, occ.Date)
}

// DayOffset is the zero-based day of the year (Jan 1 = 0). Chore rotation is
// keyed on this value.
func DayOffset(t time.Time) int {
	return t.YearDay() - 1
}

// RotationIndex picks the slot for dayOffset in a list of the given length.
// Any N consecutive offsets visit every slot exactly once. Returns -1 when
// there is nothing to choose from.
func RotationIndex(dayOffset, choices int) int {
	if choices <= 0 {
		return -1
	}
	idx := dayOffset % choices
	if idx < 0 {
		idx += choices
	}
	return idx
}
