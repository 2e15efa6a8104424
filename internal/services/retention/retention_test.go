package retention

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"guildbot/internal/messenger"
	"guildbot/internal/storage"
)

const channel = "chan"

var now = time.Date(2025, time.November, 19, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*storage.DB, *messenger.Memory, *Service) {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := messenger.NewMemory("bot")
	svc := New(db, mem, Config{Delay: 2 * time.Hour, Pages: 5, PageSize: 100}, zerolog.Nop())
	svc.now = func() time.Time { return now }
	return db, mem, svc
}

// postCard sends a card-shaped message carrying the event id in its
// footer and button payloads, the way the live card does.
func postCard(t *testing.T, mem *messenger.Memory, eventID string) messenger.Message {
	t.Helper()
	msg, err := mem.Send(context.Background(), channel, messenger.Content{
		Embeds: []messenger.Embed{{
			Title:  "⚔️ Raid Night",
			Footer: fmt.Sprintf("Event ID: %s", eventID),
		}},
		Buttons: []messenger.Button{
			{CustomID: "event:join:" + eventID, Label: "Join"},
			{CustomID: "event:leave:" + eventID, Label: "Leave"},
		},
	})
	require.NoError(t, err)
	return msg
}

func insertEvent(t *testing.T, db *storage.DB, id string, when time.Time, threadID string) {
	t.Helper()
	require.NoError(t, db.InsertEvent(context.Background(), storage.EventRow{
		ID: id, GuildID: "g", ChannelID: channel, Name: "Raid Night", HostID: "host",
		WhenUnix: when.Unix(), ThreadID: threadID,
	}))
}

func TestSweepCleansAgedEvent(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t)
	ctx := context.Background()

	card := postCard(t, mem, "evt1")
	thread, err := mem.CreateThread(ctx, channel, card.ID, "Raid Night")
	require.NoError(t, err)
	chatter, err := mem.Send(ctx, channel, messenger.Content{Text: "unrelated"})
	require.NoError(t, err)

	insertEvent(t, db, "evt1", now.Add(-3*time.Hour), thread)
	require.NoError(t, svc.Sweep(ctx))

	require.False(t, mem.Has(channel, card.ID), "card removed")
	require.True(t, mem.Has(channel, chatter.ID), "unrelated message kept")
	require.True(t, mem.ThreadDeleted(thread))

	done, err := db.IsCleaned(ctx, "evt1")
	require.NoError(t, err)
	require.True(t, done)
}

func TestSweepIsIdempotent(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t)
	ctx := context.Background()

	postCard(t, mem, "evt1")
	insertEvent(t, db, "evt1", now.Add(-3*time.Hour), "")

	require.NoError(t, svc.Sweep(ctx))
	deletes := mem.DeleteCount
	require.Equal(t, 1, deletes)

	// Repost something that mentions the id; the marker must keep the
	// second sweep from touching it.
	postCard(t, mem, "evt1")
	require.NoError(t, svc.Sweep(ctx))
	require.Equal(t, deletes, mem.DeleteCount)

	done, err := db.IsCleaned(ctx, "evt1")
	require.NoError(t, err)
	require.True(t, done)
}

func TestSweepSkipsRecentEvents(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t)
	ctx := context.Background()

	card := postCard(t, mem, "evt1")
	insertEvent(t, db, "evt1", now.Add(-time.Hour), "") // inside the delay

	require.NoError(t, svc.Sweep(ctx))
	require.True(t, mem.Has(channel, card.ID))

	done, err := db.IsCleaned(ctx, "evt1")
	require.NoError(t, err)
	require.False(t, done)
}

func TestSweepMarksEvenWhenThreadAlreadyGone(t *testing.T) {
	t.Parallel()
	db, _, svc := setup(t)
	ctx := context.Background()

	insertEvent(t, db, "evt1", now.Add(-3*time.Hour), "thread-never-existed")
	require.NoError(t, svc.Sweep(ctx))

	done, err := db.IsCleaned(ctx, "evt1")
	require.NoError(t, err)
	require.True(t, done)
}

func TestReferencesMatchesAllCarriers(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		msg  messenger.Message
		want bool
	}{
		{"content", messenger.Message{Content: "cleanup for evt9 done"}, true},
		{"custom id", messenger.Message{CustomIDs: []string{"event:join:evt9"}}, true},
		{"footer", messenger.Message{Embeds: []messenger.Embed{{Footer: "Event ID: evt9"}}}, true},
		{"field", messenger.Message{Embeds: []messenger.Embed{{Fields: []messenger.EmbedField{{Value: "evt9"}}}}}, true},
		{"no match", messenger.Message{Content: "nothing here"}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, references(tc.msg, "evt9"))
		})
	}
}
