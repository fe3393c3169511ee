// Package progress holds the pure rules behind streaks and badges. Nothing
// here touches storage; callers load counters, apply a rule and persist.
package progress

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for award and streak keys
const DateLayout = "2006-01-02"

// SchoolDays is the set of weekdays on which streaks advance
type SchoolDays []time.Weekday

// DefaultSchoolDays is Tuesday, Wednesday and Thursday
func DefaultSchoolDays() SchoolDays {
	return SchoolDays{time.Tuesday, time.Wednesday, time.Thursday}
}

// ParseSchoolDays parses a comma separated list of weekday numbers
// (0 = Sunday ... 6 = Saturday).
func ParseSchoolDays(s string) (SchoolDays, error) {
	var days SchoolDays
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		if !slices.Contains(days, time.Weekday(n)) {
			days = append(days, time.Weekday(n))
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("at least one school day is required")
	}
	slices.Sort(days)
	return days, nil
}

// String formats the set the way ParseSchoolDays reads it
func (d SchoolDays) String() string {
	parts := make([]string, len(d))
	for i, w := range d {
		parts[i] = strconv.Itoa(int(w))
	}
	return strings.Join(parts, ",")
}

// Ints returns the weekday numbers
func (d SchoolDays) Ints() []int {
	out := make([]int, len(d))
	for i, w := range d {
		out[i] = int(w)
	}
	return out
}

// Contains reports whether w is a school day
func (d SchoolDays) Contains(w time.Weekday) bool {
	return slices.Contains(d, w)
}

// NextAfter returns the first school day strictly after date
func (d SchoolDays) NextAfter(date time.Time) time.Time {
	if len(d) == 0 {
		return date.AddDate(0, 0, 1)
	}
	next := date.AddDate(0, 0, 1)
	for !d.Contains(next.Weekday()) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Streak is a kid's consecutive school-day completion record
type Streak struct {
	Current       int
	Best          int
	LastCompleted string // DateLayout, empty before the first completion
}

// Advance applies a completion on date and reports whether the streak changed.
//
// Completions on non-school days are ignored. The first completion starts a
// streak of 1. A completion on the next school day after the last one
// extends it; a later one resets it to 1; an earlier or same-day one is a
// no-op. Best never decreases.
func Advance(s Streak, date time.Time, days SchoolDays) (Streak, bool) {
	if len(days) == 0 {
		days = DefaultSchoolDays()
	}
	date = truncateDay(date)
	if !days.Contains(date.Weekday()) {
		return s, false
	}

	if s.LastCompleted == "" {
		s.Current = 1
	} else {
		last, err := time.Parse(DateLayout, s.LastCompleted)
		if err != nil {
			// Unreadable history restarts the streak.
			s.Current = 1
		} else {
			expected := days.NextAfter(last)
			switch {
			case date.Equal(expected):
				s.Current++
			case date.After(expected):
				s.Current = 1
			default:
				return s, false
			}
		}
	}

	s.LastCompleted = date.Format(DateLayout)
	if s.Current > s.Best {
		s.Best = s.Current
	}
	return s, true
}

// ParseDate parses a DateLayout string
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the current calendar date string in loc
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
