package notify

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a reminder due date cannot be parsed.
var ErrInvalidDate = errors.New("invalid due date")

const (
	// defaultHour is the local time-of-day used for date-only reminders.
	defaultHour = 8

	// minDelay is the floor applied to every resolved delay. It absorbs
	// clock skew and rounding, and doubles as the near-immediate fallback
	// for reminders whose calendar date is already in the past.
	minDelay = 10 * time.Second
)

// Layouts tried for inputs that carry a time component, in order.
var dueTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ResolveDueTime converts a reminder's due date into the instant its
// notification should fire, plus the whole-second delay from now.
//
// Inputs without a time component default to 08:00 local on the given date.
// A due time that has already elapsed today rolls to the same time-of-day
// tomorrow; a calendar date strictly in the past falls back to now+10s so the
// caller still gets a confirmably scheduled notification. The returned delay
// is never below 10 seconds.
//
// All arithmetic happens in now's location, so tests can inject both the
// clock and the timezone.
func ResolveDueTime(input string, now time.Time) (time.Time, time.Duration, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, 0, ErrInvalidDate
	}

	loc := now.Location()

	var candidate time.Time
	if strings.ContainsRune(input, 'T') {
		t, err := parseDateTime(input, loc)
		if err != nil {
			return time.Time{}, 0, ErrInvalidDate
		}
		candidate = t
	} else {
		d, err := time.ParseInLocation("2006-01-02", input, loc)
		if err != nil {
			return time.Time{}, 0, ErrInvalidDate
		}
		candidate = time.Date(d.Year(), d.Month(), d.Day(), defaultHour, 0, 0, 0, loc)
	}

	if candidate.Before(now) {
		if sameCalendarDay(candidate, now) {
			// The time slot already passed today: the user meant this
			// time of day, so fire tomorrow at the same time.
			candidate = candidate.AddDate(0, 0, 1)
		} else {
			// Stale calendar date: schedule near-immediately instead of
			// refusing outright.
			candidate = now.Add(minDelay)
		}
	}

	delay := candidate.Sub(now).Truncate(time.Second)
	if delay < minDelay {
		delay = minDelay
	}
	return candidate, delay, nil
}

func parseDateTime(input string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range dueTimeLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
