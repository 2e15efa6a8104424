package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bot.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestEventRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	when := time.Now().Add(2 * time.Hour).Unix()
	require.NoError(t, db.InsertEvent(ctx, EventRow{
		ID: "msg-1", GuildID: "g1", ChannelID: "c1", Name: "Raid Night",
		HostID: "host", Description: "bring potions", WhenUnix: when, Max: 5,
	}))

	got, err := db.GetEvent(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, "Raid Night", got.Name)
	require.Equal(t, when, got.WhenUnix)
	require.Equal(t, int64(5), got.Max)
	require.Empty(t, got.ThreadID)
	require.NotZero(t, got.CreatedAt)

	_, err = db.GetEvent(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetEventThread(ctx, "msg-1", "th-9"))
	got, err = db.GetEvent(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, "th-9", got.ThreadID)
}

func TestNullableFields(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	// Free-text when only, no capacity, no thread.
	require.NoError(t, db.InsertEvent(ctx, EventRow{
		ID: "e1", GuildID: "g", ChannelID: "c", Name: "sometime", HostID: "h",
		WhenText: "after raid",
	}))
	got, err := db.GetEvent(ctx, "e1")
	require.NoError(t, err)
	require.Zero(t, got.WhenUnix)
	require.Equal(t, "after raid", got.WhenText)
	require.Zero(t, got.Max)
}

func TestParticipants(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	require.NoError(t, db.InsertEvent(ctx, EventRow{ID: "e1", GuildID: "g", ChannelID: "c", Name: "n", HostID: "h"}))
	require.NoError(t, db.AddParticipant(ctx, "e1", "alice"))
	require.NoError(t, db.AddParticipant(ctx, "e1", "bob"))
	// Duplicate join is a no-op.
	require.NoError(t, db.AddParticipant(ctx, "e1", "alice"))

	got, err := db.Participants(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NoError(t, db.RemoveParticipant(ctx, "e1", "alice"))
	got, err = db.Participants(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, got)
}

func TestSchedulableEventsFilter(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()
	now := time.Now().Unix()

	// Has thread and resolved when: schedulable.
	require.NoError(t, db.InsertEvent(ctx, EventRow{ID: "ok", GuildID: "g", ChannelID: "c", Name: "n", HostID: "h", WhenUnix: now + 3600, ThreadID: "t1"}))
	// No thread: excluded.
	require.NoError(t, db.InsertEvent(ctx, EventRow{ID: "nothread", GuildID: "g", ChannelID: "c", Name: "n", HostID: "h", WhenUnix: now + 3600}))
	// No resolved when: excluded.
	require.NoError(t, db.InsertEvent(ctx, EventRow{ID: "nowhen", GuildID: "g", ChannelID: "c", Name: "n", HostID: "h", ThreadID: "t2"}))
	// Too old: excluded by look-back.
	require.NoError(t, db.InsertEvent(ctx, EventRow{ID: "old", GuildID: "g", ChannelID: "c", Name: "n", HostID: "h", WhenUnix: now - 8*24*3600, ThreadID: "t3"}))

	rows, err := db.SchedulableEvents(ctx, now-7*24*3600)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "ok", rows[0].ID)
}

func TestReminderLedger(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	require.NoError(t, db.InsertEvent(ctx, EventRow{ID: "e1", GuildID: "g", ChannelID: "c", Name: "n", HostID: "h"}))

	st, err := db.Reminder(ctx, "e1")
	require.NoError(t, err)
	for i := 0; i < ThresholdCount; i++ {
		require.False(t, st.IsSent(i))
	}

	require.NoError(t, db.MarkReminderSent(ctx, "e1", 2, 111))
	st, err = db.Reminder(ctx, "e1")
	require.NoError(t, err)
	require.True(t, st.IsSent(2))
	require.Equal(t, int64(111), st.Sent[2])

	// Monotonic: a second mark keeps the original instant.
	require.NoError(t, db.MarkReminderSent(ctx, "e1", 2, 222))
	st, err = db.Reminder(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, int64(111), st.Sent[2])

	require.Error(t, db.MarkReminderSent(ctx, "e1", ThresholdCount, 1))
}

func TestAnnouncements(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	a := Announcement{Kind: "hunt", StartUnix: 100, EndUnix: 200, ChannelID: "c", MessageID: "m1", PostedAt: 101}
	require.NoError(t, db.SaveAnnouncement(ctx, a))

	got, ok, err := db.Announcement(ctx, "hunt", 100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, a, got)

	// Replace-on-conflict: same (kind, start) keeps one record.
	a.MessageID = "m2"
	require.NoError(t, db.SaveAnnouncement(ctx, a))
	all, err := db.Announcements(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "m2", all[0].MessageID)

	require.NoError(t, db.DeleteAnnouncement(ctx, "hunt", 100))
	_, ok, err = db.Announcement(ctx, "hunt", 100)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRetentionMarker(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	ok, err := db.IsCleaned(ctx, "e1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, db.MarkCleaned(ctx, "e1", 123))
	ok, err = db.IsCleaned(ctx, "e1")
	require.NoError(t, err)
	require.True(t, ok)

	// Write-once.
	require.NoError(t, db.MarkCleaned(ctx, "e1", 456))
}

func TestControlMessages(t *testing.T) {
	t.Parallel()
	db := openTest(t)
	ctx := context.Background()

	id, err := db.ControlMessage(ctx, "event-hub", "chan")
	require.NoError(t, err)
	require.Empty(t, id)

	require.NoError(t, db.UpsertControlMessage(ctx, "event-hub", "chan", "m1"))
	require.NoError(t, db.UpsertControlMessage(ctx, "event-hub", "chan", "m2"))

	id, err = db.ControlMessage(ctx, "event-hub", "chan")
	require.NoError(t, err)
	require.Equal(t, "m2", id)
}
