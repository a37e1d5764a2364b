package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// ParseClock strictly parses a 24-hour "HH:MM" value.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("invalid time %q: hour out of range", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("invalid time %q: minute out of range", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// Span is an elapsed duration split into whole hours and minutes.
// A zero Span with Valid unset came from malformed input.
type Span struct {
	Hours   int
	Minutes int
	Valid   bool
}

// String renders the span as "2h 30m", or "45m" when there are no hours.
func (s Span) String() string {
	if !s.Valid {
		return "?"
	}
	if s.Hours == 0 {
		return fmt.Sprintf("%dm", s.Minutes)
	}
	return fmt.Sprintf("%dh %dm", s.Hours, s.Minutes)
}

// Duration returns the time elapsed from start to end. An end earlier
// than start rolls past midnight into the next day.
func Duration(start, end string) Span {
	from, err := ParseClock(start)
	if err != nil {
		return Span{}
	}
	to, err := ParseClock(end)
	if err != nil {
		return Span{}
	}
	elapsed := to.Minutes() - from.Minutes()
	if elapsed < 0 {
		elapsed += minutesPerDay
	}
	return Span{Hours: elapsed / 60, Minutes: elapsed % 60, Valid: true}
}
