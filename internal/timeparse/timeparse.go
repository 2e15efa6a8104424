// Package timeparse turns human "when" text into a concrete instant.
// Accepted shapes, tried in order: RFC 3339 / ISO, "YYYY-MM-DD HH:mm",
// "today HH:mm", "tomorrow HH:mm", "<weekday> HH:mm", and bare "HH:mm"
// (next occurrence). Anything else is kept as free text.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

var (
	reAbsolute = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})\s+(\d{1,2}):(\d{2})$`)
	reToday    = regexp.MustCompile(`^today\s+(\d{1,2}):(\d{2})$`)
	reTomorrow = regexp.MustCompile(`^tomorrow\s+(\d{1,2}):(\d{2})$`)
	reWeekday  = regexp.MustCompile(`^([a-z]+)\s+(\d{1,2}):(\d{2})$`)
	reClock    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// Result holds a parsed "when". Unix is zero when the text could not be
// resolved; Canonical then echoes the raw input so it can be stored and
// shown as-is.
type Result struct {
	Unix      int64
	Canonical string
}

// Resolved reports whether parsing produced a concrete instant.
func (r Result) Resolved() bool { return r.Unix > 0 }

// Parse interprets input relative to now in loc.
func Parse(input string, now time.Time, loc *time.Location) Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}
	}
	now = now.In(loc).Truncate(time.Second)
	s := strings.ToLower(input)

	if dt, ok := parseAt(input, s, now, loc); ok {
		return Result{Unix: dt.Unix(), Canonical: dt.Format("2006-01-02 15:04")}
	}
	return Result{Canonical: input}
}

func parseAt(raw, s string, now time.Time, loc *time.Location) (time.Time, bool) {
	if dt, err := time.ParseInLocation(time.RFC3339, raw, loc); err == nil {
		return dt, true
	}
	if dt, err := time.ParseInLocation("2006-01-02T15:04", raw, loc); err == nil {
		return dt, true
	}

	if m := reAbsolute.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		h, mi, ok := clock(m[4], m[5])
		if !ok {
			return time.Time{}, false
		}
		return time.Date(y, time.Month(mo), d, h, mi, 0, 0, loc), true
	}

	if m := reToday.FindStringSubmatch(s); m != nil {
		h, mi, ok := clock(m[1], m[2])
		if !ok {
			return time.Time{}, false
		}
		dt := atClock(now, h, mi)
		if !dt.After(now) {
			dt = dt.AddDate(0, 0, 1)
		}
		return dt, true
	}

	if m := reTomorrow.FindStringSubmatch(s); m != nil {
		h, mi, ok := clock(m[1], m[2])
		if !ok {
			return time.Time{}, false
		}
		return atClock(now.AddDate(0, 0, 1), h, mi), true
	}

	if m := reWeekday.FindStringSubmatch(s); m != nil {
		wd, known := weekdays[m[1]]
		if !known {
			return time.Time{}, false
		}
		h, mi, ok := clock(m[2], m[3])
		if !ok {
			return time.Time{}, false
		}
		delta := (int(wd) - int(now.Weekday()) + 7) % 7
		dt := atClock(now.AddDate(0, 0, delta), h, mi)
		if delta == 0 && !dt.After(now) {
			dt = dt.AddDate(0, 0, 7)
		}
		return dt, true
	}

	if m := reClock.FindStringSubmatch(s); m != nil {
		h, mi, ok := clock(m[1], m[2])
		if !ok {
			return time.Time{}, false
		}
		dt := atClock(now, h, mi)
		if !dt.After(now) {
			dt = dt.AddDate(0, 0, 1)
		}
		return dt, true
	}

	return time.Time{}, false
}

func atClock(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

func clock(hs, ms string) (hour, minute int, ok bool) {
	hour, _ = strconv.Atoi(hs)
	minute, _ = strconv.Atoi(ms)
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
