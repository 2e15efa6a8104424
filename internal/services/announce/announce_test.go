package announce

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"guildbot/internal/messenger"
	"guildbot/internal/occurrence"
	"guildbot/internal/storage"
)

const channel = "chan"

func setup(t *testing.T) (*storage.DB, *messenger.Memory, *Service) {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := messenger.NewMemory("bot")
	svc := New(db, mem, Config{ChannelID: channel, Grace: 10 * time.Minute}, time.UTC, zerolog.Nop())
	t.Cleanup(svc.Stop)
	return db, mem, svc
}

// Friday 2025-11-21; the hunt window opens at 17:00 and runs 14 hours.
var huntStart = time.Date(2025, time.November, 21, 17, 0, 0, 0, time.UTC)

func TestSafetyPassPostsWithinGrace(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t)
	ctx := context.Background()

	svc.now = func() time.Time { return huntStart.Add(5 * time.Minute) }
	require.NoError(t, svc.SafetyPass(ctx))

	msgs := mem.Messages(channel)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Content, "Guild Hunt")

	rec, ok, err := db.Announcement(ctx, "hunt", huntStart.Unix())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, msgs[0].ID, rec.MessageID)
	require.Equal(t, huntStart.Add(14*time.Hour).Unix(), rec.EndUnix)
}

func TestSafetyPassIsIdempotent(t *testing.T) {
	t.Parallel()
	_, mem, svc := setup(t)
	ctx := context.Background()

	svc.now = func() time.Time { return huntStart.Add(5 * time.Minute) }
	require.NoError(t, svc.SafetyPass(ctx))
	require.NoError(t, svc.SafetyPass(ctx))
	require.NoError(t, svc.SafetyPass(ctx))

	require.Len(t, mem.Messages(channel), 1, "one notice per (kind, start)")
	require.Zero(t, mem.DeleteCount)
}

func TestSafetyPassSkipsOutsideGrace(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t)
	ctx := context.Background()

	svc.now = func() time.Time { return huntStart.Add(20 * time.Minute) }
	require.NoError(t, svc.SafetyPass(ctx))

	require.Empty(t, mem.Messages(channel))
	_, ok, err := db.Announcement(ctx, "hunt", huntStart.Unix())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSafetyPassRemovesExpired(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t)
	ctx := context.Background()

	// A notice left over from last week's window.
	stale, err := mem.Send(ctx, channel, messenger.Content{Text: "old notice"})
	require.NoError(t, err)
	lastWeek := huntStart.Add(-7 * 24 * time.Hour)
	require.NoError(t, db.SaveAnnouncement(ctx, storage.Announcement{
		Kind: "hunt", StartUnix: lastWeek.Unix(), EndUnix: lastWeek.Add(14 * time.Hour).Unix(),
		ChannelID: channel, MessageID: stale.ID, PostedAt: lastWeek.Unix(),
	}))

	// Tuesday, no window open: only the expired record gets cleaned.
	svc.now = func() time.Time { return huntStart.Add(-3 * 24 * time.Hour) }
	require.NoError(t, svc.SafetyPass(ctx))

	require.False(t, mem.Has(channel, stale.ID))
	recs, err := db.Announcements(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)

	// Second pass has nothing to delete.
	require.NoError(t, svc.SafetyPass(ctx))
	require.Equal(t, 1, mem.DeleteCount)
}

func TestCloseWindowToleratesMissingMessage(t *testing.T) {
	t.Parallel()
	db, _, svc := setup(t)
	ctx := context.Background()

	rec := storage.Announcement{
		Kind: "dance", StartUnix: 100, EndUnix: 200,
		ChannelID: channel, MessageID: "never-existed", PostedAt: 100,
	}
	require.NoError(t, db.SaveAnnouncement(ctx, rec))
	require.NoError(t, svc.closeWindow(ctx, rec))

	recs, err := db.Announcements(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestOpenWindowThenReconcileKeepsNotice(t *testing.T) {
	t.Parallel()
	_, mem, svc := setup(t)
	ctx := context.Background()

	svc.now = func() time.Time { return huntStart }
	win, open := occurrence.CurrentWindow(svc.now(), occurrence.Hunt)
	require.True(t, open)
	require.NoError(t, svc.openWindow(ctx, "hunt", win))

	// A restart mid-window must keep the already-posted notice.
	svc.now = func() time.Time { return huntStart.Add(3 * time.Hour) }
	require.NoError(t, svc.SafetyPass(ctx))
	require.Len(t, mem.Messages(channel), 1)
	require.Zero(t, mem.DeleteCount)
}
