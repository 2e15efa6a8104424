// Package bot is the discordgo-facing layer: the slash command, the
// event wizard (modal plus select pickers), card button handling and
// the hub bump on channel traffic. All scheduling logic lives in the
// services; this package only translates interactions.
package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"guildbot/internal/event"
	"guildbot/internal/messenger"
	"guildbot/internal/services/hub"
)

// handlerTimeout bounds the outbound calls of one interaction.
const handlerTimeout = 15 * time.Second

type Config struct {
	GuildID        string
	EventChannelID string
}

// Bot wires gateway events to the event store and the hub service.
type Bot struct {
	session *discordgo.Session
	msgr    messenger.Client
	store   *event.Store
	hub     *hub.Service
	drafts  *DraftStore
	cfg     Config
	loc     *time.Location
	log     zerolog.Logger

	now func() time.Time
}

func New(session *discordgo.Session, msgr messenger.Client, store *event.Store, hubSvc *hub.Service, cfg Config, loc *time.Location, log zerolog.Logger) *Bot {
	return &Bot{
		session: session,
		msgr:    msgr,
		store:   store,
		hub:     hubSvc,
		drafts:  NewDraftStore(),
		cfg:     cfg,
		loc:     loc,
		log:     log.With().Str("component", "bot").Logger(),
		now:     time.Now,
	}
}

// Register attaches the gateway handlers and creates the guild slash
// command. Call after the session is opened.
func (b *Bot) Register() error {
	b.session.AddHandler(b.onInteraction)
	b.session.AddHandler(b.onMessage)

	_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.cfg.GuildID, &discordgo.ApplicationCommand{
		Name:        commandName,
		Description: "Create a guild event",
	})
	return err
}

func (b *Bot) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	b.hub.OnChannelTraffic(ctx, m.ChannelID, m.Author.ID)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var err error
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == commandName {
			err = b.openWizard(s, i)
		}
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == customIDModal {
			err = b.handleModal(ctx, s, i)
		}
	case discordgo.InteractionMessageComponent:
		err = b.dispatchComponent(ctx, s, i)
	}

	if err != nil {
		b.log.Error().Err(err).Str("user_id", interactionUser(i)).Msg("interaction failed")
		b.respondOops(s, i)
	}
}

func (b *Bot) dispatchComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	switch i.MessageComponentData().CustomID {
	case hub.CustomIDCreate:
		return b.openWizard(s, i)
	case customIDSelectDay, customIDSelectHour, customIDSelectMinute:
		return b.handleSelect(s, i)
	case customIDCreate:
		return b.finalizeDraft(ctx, s, i)
	case customIDCancel:
		return b.cancelDraft(s, i)
	case event.CustomIDJoin:
		return b.handleJoin(ctx, s, i)
	case event.CustomIDLeave:
		return b.handleLeave(ctx, s, i)
	case event.CustomIDStartThread:
		return b.handleStartThread(ctx, s, i)
	}
	return nil
}

func interactionUser(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// respondOops degrades to a generic ephemeral notice; if the handler
// already responded it goes out as a followup instead.
func (b *Bot) respondOops(s *discordgo.Session, i *discordgo.InteractionCreate) {
	const text = "Something went wrong, please try again."
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: text, Flags: discordgo.MessageFlagsEphemeral,
		})
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, text string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	})
}
