package messenger

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DiscordConfig tunes the adapter.
type DiscordConfig struct {
	// SendRatePerSec caps outbound REST calls before discordgo's own
	// bucket limiter kicks in. 0 means 5/s.
	SendRatePerSec int
}

// Discord adapts a discordgo session to the Client interface.
type Discord struct {
	s       *discordgo.Session
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewDiscord wraps an opened session.
func NewDiscord(s *discordgo.Session, cfg DiscordConfig, log zerolog.Logger) *Discord {
	per := cfg.SendRatePerSec
	if per <= 0 {
		per = 5
	}
	return &Discord{
		s:       s,
		limiter: rate.NewLimiter(rate.Limit(per), per),
		log:     log.With().Str("component", "discord").Logger(),
	}
}

func (d *Discord) BotUserID() string {
	if d.s.State != nil && d.s.State.User != nil {
		return d.s.State.User.ID
	}
	return ""
}

func (d *Discord) Send(ctx context.Context, channelID string, c Content) (Message, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return Message{}, err
	}
	msg, err := d.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         c.Text,
		Embeds:          toEmbeds(c.Embeds),
		Components:      toComponents(c),
		AllowedMentions: toMentions(c.Mentions),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Message{}, mapErr(err)
	}
	return fromMessage(msg), nil
}

func (d *Discord) Edit(ctx context.Context, channelID, messageID string, c Content) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	embeds := toEmbeds(c.Embeds)
	components := toComponents(c)
	_, err := d.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:         channelID,
		ID:              messageID,
		Content:         &c.Text,
		Embeds:          &embeds,
		Components:      &components,
		AllowedMentions: toMentions(c.Mentions),
	}, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (d *Discord) Delete(ctx context.Context, channelID, messageID string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return mapErr(d.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (d *Discord) Fetch(ctx context.Context, channelID, messageID string) (Message, error) {
	msg, err := d.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return Message{}, mapErr(err)
	}
	return fromMessage(msg), nil
}

func (d *Discord) History(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error) {
	msgs, err := d.s.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, fromMessage(m))
	}
	return out, nil
}

func (d *Discord) CreateThread(ctx context.Context, channelID, messageID, name string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}
	th, err := d.s.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: 10080, // one week
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapErr(err)
	}
	return th.ID, nil
}

func (d *Discord) DeleteThread(ctx context.Context, threadID string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := d.s.ChannelDelete(threadID, discordgo.WithContext(ctx))
	return mapErr(err)
}

func (d *Discord) Pin(ctx context.Context, channelID, messageID string) error {
	return mapErr(d.s.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx)))
}

// mapErr folds discord "unknown entity" responses into ErrNotFound so
// delete-intent callers can treat already-gone as terminal success.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		if rest.Response != nil && rest.Response.StatusCode == 404 {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		if rest.Message != nil {
			switch rest.Message.Code {
			case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
				return fmt.Errorf("%w: %v", ErrNotFound, err)
			}
		}
	}
	return err
}

func toMentions(m *Mentions) *discordgo.MessageAllowedMentions {
	if m == nil {
		return &discordgo.MessageAllowedMentions{}
	}
	out := &discordgo.MessageAllowedMentions{Users: m.Users}
	if m.Everyone {
		out.Parse = append(out.Parse, discordgo.AllowedMentionTypeEveryone)
	}
	return out
}

func toEmbeds(embeds []Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		de := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
		}
		for _, f := range e.Fields {
			de.Fields = append(de.Fields, &discordgo.MessageEmbedField{
				Name:   f.Name,
				Value:  f.Value,
				Inline: f.Inline,
			})
		}
		if e.Footer != "" {
			de.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		out = append(out, de)
	}
	return out
}

func toComponents(c Content) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	for _, sel := range c.Selects {
		menu := discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    sel.CustomID,
			Placeholder: sel.Placeholder,
		}
		for _, o := range sel.Options {
			menu.Options = append(menu.Options, discordgo.SelectMenuOption{
				Label:   o.Label,
				Value:   o.Value,
				Default: o.Default,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{menu}})
	}
	if len(c.Buttons) > 0 {
		var btns []discordgo.MessageComponent
		for _, b := range c.Buttons {
			db := discordgo.Button{
				Label:    b.Label,
				Style:    toStyle(b.Style),
				CustomID: b.CustomID,
				URL:      b.URL,
			}
			if b.Emoji != "" {
				db.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			btns = append(btns, db)
		}
		rows = append(rows, discordgo.ActionsRow{Components: btns})
	}
	return rows
}

func toStyle(s ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case ButtonSecondary:
		return discordgo.SecondaryButton
	case ButtonSuccess:
		return discordgo.SuccessButton
	case ButtonLink:
		return discordgo.LinkButton
	default:
		return discordgo.PrimaryButton
	}
}

func fromMessage(m *discordgo.Message) Message {
	if m == nil {
		return Message{}
	}
	out := Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	for _, e := range m.Embeds {
		emb := Embed{Title: e.Title, Description: e.Description}
		for _, f := range e.Fields {
			emb.Fields = append(emb.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.Footer != nil {
			emb.Footer = e.Footer.Text
		}
		out.Embeds = append(out.Embeds, emb)
	}
	out.CustomIDs = collectCustomIDs(m.Components)
	return out
}

func collectCustomIDs(components []discordgo.MessageComponent) []string {
	var ids []string
	for _, comp := range components {
		switch v := comp.(type) {
		case *discordgo.ActionsRow:
			ids = append(ids, collectCustomIDs(v.Components)...)
		case discordgo.ActionsRow:
			ids = append(ids, collectCustomIDs(v.Components)...)
		case *discordgo.Button:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		case discordgo.Button:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		case *discordgo.SelectMenu:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		case discordgo.SelectMenu:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		}
	}
	return ids
}
