package config

import (
	"fmt"
	"strings"
	"time"
)

// Window is a half-open time-of-day interval ("08:00-10:00"). An action
// restricted to a window has its due time rolled forward, never backward,
// to the next instant whose local clock time falls inside it.
type Window struct {
	Start int // minutes since midnight, inclusive
	End   int // minutes since midnight, exclusive
}

// ParseWindow parses a "HH:MM-HH:MM" restriction string.
func ParseWindow(s string) (Window, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("invalid time window %q, want HH:MM-HH:MM", s)
	}

	start, err := parseClock(parts[0])
	if err != nil {
		return Window{}, fmt.Errorf("invalid time window %q: %w", s, err)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("invalid time window %q: %w", s, err)
	}
	if start == end {
		return Window{}, fmt.Errorf("invalid time window %q: empty interval", s)
	}

	return Window{Start: start, End: end}, nil
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad clock time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether the local clock time of t falls inside the
// window. Windows crossing midnight (e.g. 22:00-02:00) are supported.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	if w.Start < w.End {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

// RollForward returns t unchanged when it already falls inside the window,
// otherwise the next window opening at or after t, crossing midnight if
// necessary.
func (w Window) RollForward(t time.Time) time.Time {
	if w.Contains(t) {
		return t
	}

	opening := time.Date(t.Year(), t.Month(), t.Day(), w.Start/60, w.Start%60, 0, 0, t.Location())
	if !opening.After(t) {
		opening = opening.AddDate(0, 0, 1)
	}
	return opening
}
