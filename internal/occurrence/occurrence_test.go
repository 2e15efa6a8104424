package occurrence

import (
	"testing"
	"time"
)

// ref is a Wednesday, 2025-11-19 12:00:00 UTC.
var ref = time.Date(2025, time.November, 19, 12, 0, 0, 0, time.UTC)

func TestNextSingleWeekday(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		now  time.Time
		day  time.Weekday
		hour int
		min  int
		want time.Time
	}{
		{
			name: "later this week",
			now:  ref,
			day:  time.Friday,
			hour: 17,
			want: time.Date(2025, time.November, 21, 17, 0, 0, 0, time.UTC),
		},
		{
			name: "earlier weekday rolls to next week",
			now:  ref,
			day:  time.Monday,
			hour: 8,
			want: time.Date(2025, time.November, 24, 8, 0, 0, 0, time.UTC),
		},
		{
			name: "same day later hour stays today",
			now:  ref,
			day:  time.Wednesday,
			hour: 18,
			want: time.Date(2025, time.November, 19, 18, 0, 0, 0, time.UTC),
		},
		{
			name: "same day earlier hour rolls a week",
			now:  ref,
			day:  time.Wednesday,
			hour: 9,
			want: time.Date(2025, time.November, 26, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "exact boundary rolls a week",
			now:  time.Date(2025, time.November, 21, 17, 0, 0, 0, time.UTC),
			day:  time.Friday,
			hour: 17,
			want: time.Date(2025, time.November, 28, 17, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.now, []time.Weekday{tt.day}, tt.hour, tt.min)
			if !got.Equal(tt.want) {
				t.Fatalf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextIsStrictlyAfterNow(t *testing.T) {
	t.Parallel()
	first := Next(ref, Hunt.Days, Hunt.Hour, Hunt.Minute)
	// Re-running with now just before the result must return the same instant.
	again := Next(first.Add(-time.Second), Hunt.Days, Hunt.Hour, Hunt.Minute)
	if !again.Equal(first) {
		t.Fatalf("Next(first-1s) = %v, want %v", again, first)
	}
	if !again.After(first.Add(-time.Second)) {
		t.Fatal("Next must be strictly after now")
	}
}

func TestNextAdvancesExactlyOneWeek(t *testing.T) {
	t.Parallel()
	days := []time.Weekday{time.Friday}
	first := Next(ref, days, 17, 0)
	second := Next(first, days, 17, 0)
	if got := second.Sub(first); got != 7*24*time.Hour {
		t.Fatalf("gap = %v, want 168h", got)
	}
}

func TestNextPicksEarliestAcrossDays(t *testing.T) {
	t.Parallel()
	got := Next(ref, Hunt.Days, Hunt.Hour, Hunt.Minute)
	want := time.Date(2025, time.November, 21, 17, 0, 0, 0, time.UTC) // Friday
	if !got.Equal(want) {
		t.Fatalf("Next = %v, want %v", got, want)
	}
}

func TestPrev(t *testing.T) {
	t.Parallel()
	// Previous hunt start before Wednesday noon is Sunday 17:00.
	got := Prev(ref, Hunt.Days, Hunt.Hour, Hunt.Minute)
	want := time.Date(2025, time.November, 16, 17, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Prev = %v, want %v", got, want)
	}

	// Exactly at a start, Prev returns that start.
	at := time.Date(2025, time.November, 21, 17, 0, 0, 0, time.UTC)
	if got := Prev(at, Hunt.Days, Hunt.Hour, Hunt.Minute); !got.Equal(at) {
		t.Fatalf("Prev at boundary = %v, want %v", got, at)
	}
}

func TestCurrentWindowBoundaries(t *testing.T) {
	t.Parallel()
	rule := WindowRule{Days: []time.Weekday{time.Friday}, Hour: 18, Minute: 30, Duration: 12 * time.Hour}
	start := time.Date(2025, time.November, 21, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		now    time.Time
		inside bool
	}{
		{"at start", start, true},
		{"last second", start.Add(rule.Duration - time.Second), true},
		{"at end", start.Add(rule.Duration), false},
		{"just before start", start.Add(-time.Second), false},
		{"mid window overnight", start.Add(8 * time.Hour), true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w, ok := CurrentWindow(tt.now, rule)
			if ok != tt.inside {
				t.Fatalf("inside = %v, want %v", ok, tt.inside)
			}
			if ok {
				if !w.Start.Equal(start) || !w.End.Equal(start.Add(rule.Duration)) {
					t.Fatalf("window = [%v, %v)", w.Start, w.End)
				}
			}
		})
	}
}

func TestCurrentWindowMultiDayRule(t *testing.T) {
	t.Parallel()
	// Saturday 03:00 is still inside Friday's hunt window (17:00 +14h),
	// and also before Saturday's own start.
	now := time.Date(2025, time.November, 22, 3, 0, 0, 0, time.UTC)
	w, ok := CurrentWindow(now, Hunt)
	if !ok {
		t.Fatal("expected an open hunt window")
	}
	wantStart := time.Date(2025, time.November, 21, 17, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", w.Start, wantStart)
	}
}

func TestNextDaily(t *testing.T) {
	t.Parallel()
	got := NextDaily(ref, 8, 0)
	want := time.Date(2025, time.November, 20, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextDaily = %v, want %v", got, want)
	}

	got = NextDaily(ref, 18, 0)
	want = time.Date(2025, time.November, 19, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextDaily = %v, want %v", got, want)
	}
}

func TestNextBiWeekly(t *testing.T) {
	t.Parallel()
	anchor := VaultAnchor(time.UTC) // 2025-11-17 05:00

	got := NextBiWeekly(anchor, ref)
	want := time.Date(2025, time.December, 1, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextBiWeekly = %v, want %v", got, want)
	}

	// Before the anchor, the anchor itself is next.
	early := anchor.Add(-time.Hour)
	if got := NextBiWeekly(anchor, early); !got.Equal(anchor) {
		t.Fatalf("NextBiWeekly before anchor = %v, want %v", got, anchor)
	}

	// Exactly at the anchor, advance a full cycle.
	if got := NextBiWeekly(anchor, anchor); !got.Equal(anchor.AddDate(0, 0, 14)) {
		t.Fatalf("NextBiWeekly at anchor = %v", got)
	}
}

func TestNextBoundaryIsEarliest(t *testing.T) {
	t.Parallel()
	b := NextBoundary(ref)
	// Daily reset on Thursday 08:00 precedes every weekly candidate.
	want := time.Date(2025, time.November, 20, 8, 0, 0, 0, time.UTC)
	if !b.Equal(want) {
		t.Fatalf("NextBoundary = %v, want %v", b, want)
	}
	if !b.After(ref) {
		t.Fatal("boundary must be in the future")
	}
}

func TestSubSecondNowIsTruncated(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, time.November, 21, 18, 30, 0, 0, time.UTC)
	// 500ms past the start must behave like the start itself.
	_, ok := CurrentWindow(start.Add(500*time.Millisecond), Dance)
	if !ok {
		t.Fatal("expected window at start+500ms")
	}
}
