package hub

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"guildbot/internal/messenger"
	"guildbot/internal/storage"
)

const channel = "chan"

// Wednesday afternoon, no activity window open.
var quietNow = time.Date(2025, time.November, 19, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, cfg Config) (*storage.DB, *messenger.Memory, *Service) {
	t.Helper()
	db, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.sqlite")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mem := messenger.NewMemory("bot")
	svc := New(db, mem, cfg, time.UTC, zerolog.Nop())
	svc.now = func() time.Time { return quietNow }
	t.Cleanup(svc.Stop)
	return db, mem, svc
}

func TestRefreshCreatesAndPins(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t, Config{ChannelID: channel, Pin: true})
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))

	msgs := mem.Messages(channel)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].CustomIDs, CustomIDCreate)

	id, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)
	require.Equal(t, msgs[0].ID, id)
}

func TestRefreshEditsInPlace(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t, Config{ChannelID: channel})
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))
	first, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(ctx))
	require.Len(t, mem.Messages(channel), 1, "refresh must edit, not repost")

	second, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestRefreshRecreatesWhenMessageGone(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t, Config{ChannelID: channel})
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))
	first, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)

	// Someone deletes the hub by hand.
	require.NoError(t, mem.Delete(ctx, channel, first))

	require.NoError(t, svc.Refresh(ctx))
	second, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.True(t, mem.Has(channel, second))
}

func TestBumpMovesHubToBottom(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t, Config{ChannelID: channel, BumpCooldown: time.Minute})
	ctx := context.Background()

	require.NoError(t, svc.Refresh(ctx))
	first, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)

	_, err = mem.Send(ctx, channel, messenger.Content{Text: "chatter"})
	require.NoError(t, err)

	require.NoError(t, svc.Bump(ctx, true))
	second, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.False(t, mem.Has(channel, first))

	msgs := mem.Messages(channel)
	require.Equal(t, second, msgs[len(msgs)-1].ID, "hub ends up newest")
}

func TestBumpCooldown(t *testing.T) {
	t.Parallel()
	db, mem, svc := setup(t, Config{ChannelID: channel, BumpCooldown: time.Minute})
	ctx := context.Background()

	require.NoError(t, svc.Bump(ctx, true))
	id1, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)

	// Same instant, unforced: inside cooldown, nothing happens.
	require.NoError(t, svc.Bump(ctx, false))
	id2, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, mem.SendCount)

	// Past the cooldown the unforced bump goes through.
	svc.now = func() time.Time { return quietNow.Add(2 * time.Minute) }
	require.NoError(t, svc.Bump(ctx, false))
	id3, err := db.ControlMessage(ctx, purpose, channel)
	require.NoError(t, err)
	require.NotEqual(t, id1, id3)
}

func TestOnChannelTrafficFilters(t *testing.T) {
	t.Parallel()
	_, mem, svc := setup(t, Config{ChannelID: channel, AlwaysLast: true})
	ctx := context.Background()

	svc.OnChannelTraffic(ctx, "other-channel", "alice")
	svc.OnChannelTraffic(ctx, channel, "bot") // own message
	require.Zero(t, mem.SendCount)

	svc.OnChannelTraffic(ctx, channel, "alice")
	require.Equal(t, 1, mem.SendCount)
}

func TestRenderShowsOpenWindow(t *testing.T) {
	t.Parallel()
	_, _, svc := setup(t, Config{ChannelID: channel})

	content := svc.render(quietNow)
	require.Len(t, content.Embeds, 1)
	require.Contains(t, content.Embeds[0].Description, "Guild Hunt")
	require.Contains(t, content.Embeds[0].Description, "next")

	// Friday 18:00: hunt is open, dance not yet.
	friday := time.Date(2025, time.November, 21, 18, 0, 0, 0, time.UTC)
	content = svc.render(friday)
	require.Contains(t, content.Embeds[0].Description, "open now")
}
