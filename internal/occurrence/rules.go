package occurrence

import "time"

// Kind names a recurring activity. Persisted as the announcement key, so
// the values are stable strings.
type Kind string

const (
	KindHunt  Kind = "hunt"
	KindDance Kind = "dance"
)

// Fixed weekly activity windows, times interpreted in the configured zone.
var (
	// Guild Hunt: Fri/Sat/Sun 17:00, open until 07:00 the next day.
	Hunt = WindowRule{
		Days:     []time.Weekday{time.Friday, time.Saturday, time.Sunday},
		Hour:     17,
		Duration: 14 * time.Hour,
	}

	// Guild Dance: Fri 18:30, open until 06:30 Saturday.
	Dance = WindowRule{
		Days:     []time.Weekday{time.Friday},
		Hour:     18,
		Minute:   30,
		Duration: 12 * time.Hour,
	}
)

// RuleFor returns the window rule for a kind.
func RuleFor(k Kind) (WindowRule, bool) {
	switch k {
	case KindHunt:
		return Hunt, true
	case KindDance:
		return Dance, true
	}
	return WindowRule{}, false
}

// Reset schedule: daily 08:00, weekly Monday 08:00, and the bi-weekly
// Stimen Vaults cycle anchored at 2025-11-17 05:00 local time.
const (
	DailyResetHour   = 8
	DailyResetMinute = 0

	WeeklyResetDay    = time.Monday
	WeeklyResetHour   = 8
	WeeklyResetMinute = 0
)

// VaultAnchor returns the bi-weekly anchor instant in loc.
func VaultAnchor(loc *time.Location) time.Time {
	return time.Date(2025, time.November, 17, 5, 0, 0, 0, loc)
}

// NextBoundary returns the earliest upcoming instant among all activity
// starts and resets. The hub scheduler refreshes shortly after it.
func NextBoundary(now time.Time) time.Time {
	candidates := []time.Time{
		Next(now, Hunt.Days, Hunt.Hour, Hunt.Minute),
		Next(now, Dance.Days, Dance.Hour, Dance.Minute),
		NextDaily(now, DailyResetHour, DailyResetMinute),
		NextWeekly(now, WeeklyResetDay, WeeklyResetHour, WeeklyResetMinute),
		NextBiWeekly(VaultAnchor(now.Location()), now),
	}
	earliest := candidates[0]
	for _, c := range candidates[1:] {
		if c.Before(earliest) {
			earliest = c
		}
	}
	return earliest
}
