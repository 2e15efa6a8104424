// Package occurrence computes occurrences of the guild's recurring
// activities: "next start after now", "previous start on or before now",
// and "is now inside the current window". All functions are pure; the
// caller supplies "now" in the zone the rules are defined in.
//
// Instants are compared at second granularity. Candidates are built with
// time.Date so DST transitions resolve the way the wall clock does.
package occurrence

import "time"

// WindowRule defines a recurring activity window: it opens at Hour:Minute
// on any of Days and stays open for Duration. Duration may exceed 24h
// (overnight activities).
type WindowRule struct {
	Days     []time.Weekday
	Hour     int
	Minute   int
	Duration time.Duration
}

// Window is one concrete open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// weekdayAt returns the instant at hour:minute on the next calendar day
// (today included) whose weekday is wd, in now's location.
func weekdayAt(now time.Time, wd time.Weekday, hour, minute int) time.Time {
	delta := (int(wd) - int(now.Weekday()) + 7) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d+delta, hour, minute, 0, 0, now.Location())
}

// Next returns the earliest occurrence of any of days at hour:minute that
// is strictly after now.
func Next(now time.Time, days []time.Weekday, hour, minute int) time.Time {
	now = now.Truncate(time.Second)
	var best time.Time
	for _, wd := range days {
		c := weekdayAt(now, wd, hour, minute)
		if !c.After(now) {
			c = c.AddDate(0, 0, 7)
		}
		if best.IsZero() || c.Before(best) {
			best = c
		}
	}
	return best
}

// Prev returns the latest occurrence of any of days at hour:minute that is
// on or before now.
func Prev(now time.Time, days []time.Weekday, hour, minute int) time.Time {
	now = now.Truncate(time.Second)
	var best time.Time
	for _, wd := range days {
		c := weekdayAt(now, wd, hour, minute)
		if c.After(now) {
			c = c.AddDate(0, 0, -7)
		}
		if c.After(best) {
			best = c
		}
	}
	return best
}

// CurrentWindow reports the window of rule that contains now, if any.
// The window starts at the previous occurrence and is half-open:
// now == start is inside, now == start+duration is not.
func CurrentWindow(now time.Time, rule WindowRule) (Window, bool) {
	now = now.Truncate(time.Second)
	start := Prev(now, rule.Days, rule.Hour, rule.Minute)
	end := start.Add(rule.Duration)
	if !now.Before(start) && now.Before(end) {
		return Window{Start: start, End: end}, true
	}
	return Window{}, false
}

// NextWindow returns the upcoming window of rule starting strictly after now.
func NextWindow(now time.Time, rule WindowRule) Window {
	start := Next(now, rule.Days, rule.Hour, rule.Minute)
	return Window{Start: start, End: start.Add(rule.Duration)}
}

// NextDaily returns the next hour:minute strictly after now.
func NextDaily(now time.Time, hour, minute int) time.Time {
	now = now.Truncate(time.Second)
	y, m, d := now.Date()
	c := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	if !c.After(now) {
		c = c.AddDate(0, 0, 1)
	}
	return c
}

// NextWeekly returns the next weekday at hour:minute strictly after now.
func NextWeekly(now time.Time, wd time.Weekday, hour, minute int) time.Time {
	return Next(now, []time.Weekday{wd}, hour, minute)
}

// NextBiWeekly advances anchor by two-week steps until it is strictly
// after now.
func NextBiWeekly(anchor, now time.Time) time.Time {
	now = now.Truncate(time.Second)
	c := anchor
	for !c.After(now) {
		c = c.AddDate(0, 0, 14)
	}
	return c
}
