package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"guildbot/internal/event"
	"guildbot/internal/messenger"
	"guildbot/internal/timeparse"
)

func (b *Bot) openWizard(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: wizardModal(),
	})
}

func (b *Bot) handleModal(_ context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	data := i.ModalSubmitData()
	name := strings.TrimSpace(modalValue(data, customIDInputName))
	if name == "" {
		return b.respondEphemeral(s, i, "The event needs a name.")
	}

	rawMax := modalValue(data, customIDInputMax)
	max, ok := parseMax(rawMax)
	if !ok {
		return b.respondEphemeral(s, i, fmt.Sprintf("%q is not a valid participant limit.", strings.TrimSpace(rawMax)))
	}

	d := &Draft{
		UserID:      interactionUser(i),
		GuildID:     b.cfg.GuildID,
		Name:        name,
		Description: strings.TrimSpace(modalValue(data, customIDInputDesc)),
		Max:         max,
		Hour:        -1,
	}
	if when := strings.TrimSpace(modalValue(data, customIDInputWhen)); when != "" {
		parsed := timeparse.Parse(when, b.now(), b.loc)
		d.WhenText = parsed.Canonical
		d.WhenUnix = parsed.Unix
	}
	b.drafts.Put(d)

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: previewData(d, b.now(), b.loc),
	})
}

func (b *Bot) handleSelect(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	d, ok := b.drafts.Get(interactionUser(i))
	if !ok {
		return b.respondEphemeral(s, i, "This wizard expired — run /"+commandName+" again.")
	}

	data := i.MessageComponentData()
	if len(data.Values) == 1 {
		switch data.CustomID {
		case customIDSelectDay:
			d.Day = data.Values[0]
		case customIDSelectHour:
			if h, err := strconv.Atoi(data.Values[0]); err == nil {
				d.Hour = h
			}
		case customIDSelectMinute:
			if m, err := strconv.Atoi(data.Values[0]); err == nil {
				d.Minute = m
			}
		}
		b.drafts.Put(d)
	}

	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: previewData(d, b.now(), b.loc),
	})
}

// finalizeDraft posts the card, persists the event under the card's
// message id and confirms to the creator.
func (b *Bot) finalizeDraft(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	userID := interactionUser(i)
	d, ok := b.drafts.Get(userID)
	if !ok {
		return b.respondEphemeral(s, i, "This wizard expired — run /"+commandName+" again.")
	}

	ev, err := b.createEvent(ctx, d, userID)
	if err != nil {
		return err
	}
	b.drafts.Delete(userID)

	link := messenger.MessageLink(ev.GuildID, ev.ChannelID, ev.ID)
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "✅ Event created: " + link,
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// createEvent posts the card into the event channel, persists the
// event under the card's message id, rewrites the card so its footer
// carries that id and then bumps the hub back below the new card.
func (b *Bot) createEvent(ctx context.Context, d *Draft, hostID string) (event.Event, error) {
	ev := event.Event{
		GuildID:     b.cfg.GuildID,
		ChannelID:   b.cfg.EventChannelID,
		Name:        d.Name,
		HostID:      hostID,
		Description: d.Description,
		WhenText:    d.WhenText,
		WhenUnix:    d.StartUnix(b.loc),
		Max:         d.Max,
	}

	msg, err := b.msgr.Send(ctx, ev.ChannelID, event.Card(ev))
	if err != nil {
		return event.Event{}, fmt.Errorf("post card: %w", err)
	}
	ev.ID = msg.ID
	if err := b.store.Create(ctx, ev); err != nil {
		return event.Event{}, fmt.Errorf("persist event: %w", err)
	}
	if err := b.msgr.Edit(ctx, ev.ChannelID, ev.ID, event.Card(ev)); err != nil {
		b.log.Warn().Err(err).Str("event_id", ev.ID).Msg("card footer rewrite failed")
	}
	if err := b.hub.Bump(ctx, false); err != nil {
		b.log.Warn().Err(err).Msg("hub bump after event creation failed")
	}
	return ev, nil
}

func (b *Bot) cancelDraft(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	b.drafts.Delete(interactionUser(i))
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "Event creation cancelled.",
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// The card's message id doubles as the event id, so button handlers
// resolve the event from the interaction's own message.

func (b *Bot) handleJoin(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ev, err := b.store.Join(ctx, i.Message.ID, interactionUser(i))
	switch {
	case errors.Is(err, event.ErrFull):
		return b.respondEphemeral(s, i, "This event is full.")
	case errors.Is(err, event.ErrAlreadyJoined):
		return b.respondEphemeral(s, i, "You are already in.")
	case errors.Is(err, event.ErrNotFound):
		return b.respondEphemeral(s, i, "This event no longer exists.")
	case err != nil:
		return err
	}
	b.editCard(ctx, ev)
	return b.respondEphemeral(s, i, joinConfirmation(ev))
}

func (b *Bot) handleLeave(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ev, err := b.store.Leave(ctx, i.Message.ID, interactionUser(i))
	switch {
	case errors.Is(err, event.ErrNotJoined):
		return b.respondEphemeral(s, i, "You were not signed up.")
	case errors.Is(err, event.ErrNotFound):
		return b.respondEphemeral(s, i, "This event no longer exists.")
	case err != nil:
		return err
	}
	b.editCard(ctx, ev)
	return b.respondEphemeral(s, i, fmt.Sprintf("👋 Left **%s**.", ev.Name))
}

func (b *Bot) handleStartThread(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	userID := interactionUser(i)
	ev, err := b.store.Resolve(ctx, i.Message.ID)
	if errors.Is(err, event.ErrNotFound) {
		return b.respondEphemeral(s, i, "This event no longer exists.")
	}
	if err != nil {
		return err
	}
	if ev.ThreadID != "" {
		return b.respondEphemeral(s, i, "The thread already exists: "+messenger.ThreadLink(ev.GuildID, ev.ThreadID))
	}
	if userID != ev.HostID && !canModerate(i) {
		return b.respondEphemeral(s, i, "Only the host or a moderator can start the thread.")
	}

	threadID, err := b.msgr.CreateThread(ctx, ev.ChannelID, ev.ID, threadName(ev))
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	if err := b.store.SetThread(ctx, ev.ID, threadID); err != nil {
		return fmt.Errorf("record thread: %w", err)
	}
	ev.ThreadID = threadID

	if _, err := b.msgr.Send(ctx, threadID, event.ThreadWelcome(ev)); err != nil {
		b.log.Warn().Err(err).Str("event_id", ev.ID).Msg("thread welcome failed")
	}
	b.editCard(ctx, ev)
	return b.respondEphemeral(s, i, "🧵 Thread created: "+messenger.ThreadLink(ev.GuildID, ev.ThreadID))
}

// editCard rewrites the card in place; the interaction gets its own
// ephemeral confirmation, so a failed edit only warrants a warning.
func (b *Bot) editCard(ctx context.Context, ev event.Event) {
	if err := b.msgr.Edit(ctx, ev.ChannelID, ev.ID, event.Card(ev)); err != nil {
		b.log.Warn().Err(err).Str("event_id", ev.ID).Msg("card update failed")
	}
}

func threadName(ev event.Event) string {
	return ev.Name + " — Planning"
}

func joinConfirmation(ev event.Event) string {
	if ev.Max > 0 {
		return fmt.Sprintf("✅ Joined **%s**. Slots: %d/%d", ev.Name, len(ev.Participants), ev.Max)
	}
	return fmt.Sprintf("✅ Joined **%s**. Going: %d", ev.Name, len(ev.Participants))
}

// parseMax reads the optional participant limit; empty means no limit
// and anything numeric is clamped to 1..100.
func parseMax(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if n < 1 {
		n = 1
	}
	if n > 100 {
		n = 100
	}
	return n, true
}

func canModerate(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionManageMessages != 0
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == customID {
				return in.Value
			}
		}
	}
	return ""
}
