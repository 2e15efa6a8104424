package event

import (
	"fmt"
	"strings"

	"guildbot/internal/messenger"
)

// Component custom ids on the event card.
const (
	CustomIDJoin        = "event:join"
	CustomIDLeave       = "event:leave"
	CustomIDStartThread = "event:start-thread"
)

// Card renders the event's channel message. The footer carries the event
// id so the retention sweeper can find the card again in channel history.
func Card(ev Event) messenger.Content {
	embed := messenger.Embed{
		Title:       "⚔️ " + ev.Name,
		Description: ev.Description,
		Footer:      "Event ID: " + ev.ID,
	}

	embed.Fields = append(embed.Fields, messenger.EmbedField{Name: "Host", Value: messenger.Mention(ev.HostID)})
	embed.Fields = append(embed.Fields, messenger.EmbedField{Name: "When", Value: PrettyWhen(ev)})
	embed.Fields = append(embed.Fields, messenger.EmbedField{Name: "​", Value: "_Times show in your local timezone._"})

	going := "—"
	if len(ev.Participants) > 0 {
		mentions := make([]string, len(ev.Participants))
		for i, p := range ev.Participants {
			mentions[i] = messenger.Mention(p)
		}
		going = strings.Join(mentions, "\n")
	}
	if ev.Max > 0 {
		embed.Fields = append(embed.Fields, messenger.EmbedField{
			Name:  "Spots",
			Value: fmt.Sprintf("%d/%d", len(ev.Participants), ev.Max),
		})
	}
	embed.Fields = append(embed.Fields, messenger.EmbedField{Name: "Going", Value: going})

	return messenger.Content{
		Embeds:  []messenger.Embed{embed},
		Buttons: cardButtons(ev),
	}
}

func cardButtons(ev Event) []messenger.Button {
	buttons := []messenger.Button{
		{CustomID: CustomIDJoin, Label: "Join", Style: messenger.ButtonSuccess},
		{CustomID: CustomIDLeave, Label: "Leave", Style: messenger.ButtonSecondary},
	}
	if ev.ThreadID != "" {
		buttons = append(buttons, messenger.Button{
			Label: "Open Thread",
			Emoji: "🚀",
			Style: messenger.ButtonLink,
			URL:   messenger.ThreadLink(ev.GuildID, ev.ThreadID),
		})
	} else {
		buttons = append(buttons, messenger.Button{
			CustomID: CustomIDStartThread,
			Label:    "Ready! Start Thread",
			Emoji:    "🚀",
			Style:    messenger.ButtonPrimary,
		})
	}
	return buttons
}

// PrettyWhen renders the start as platform timestamps, falling back to
// the free text.
func PrettyWhen(ev Event) string {
	if ev.HasWhen() {
		return messenger.TimestampFull(ev.WhenUnix) + "\n" + messenger.TimestampRelative(ev.WhenUnix)
	}
	if ev.WhenText != "" {
		return ev.WhenText
	}
	return "—"
}

// ThreadWelcome renders the first message of a freshly created planning
// thread. The mention allow-list is capped to keep notifications tidy.
func ThreadWelcome(ev Event) messenger.Content {
	const maxMentions = 25

	parts := "—"
	if len(ev.Participants) > 0 {
		mentions := make([]string, len(ev.Participants))
		for i, p := range ev.Participants {
			mentions[i] = messenger.Mention(p)
		}
		parts = strings.Join(mentions, ", ")
	}

	allowed := make([]string, 0, maxMentions)
	allowed = append(allowed, ev.HostID)
	for _, p := range ev.Participants {
		if p == ev.HostID {
			continue
		}
		if len(allowed) >= maxMentions {
			break
		}
		allowed = append(allowed, p)
	}

	lines := []string{
		"⚔️ Thread for **" + ev.Name + "**",
		"**When:** " + strings.ReplaceAll(PrettyWhen(ev), "\n", " — "),
		"**Host:** " + messenger.Mention(ev.HostID),
		"**Participants:** " + parts,
		"",
		"Use this space to coordinate together!",
	}
	return messenger.Content{
		Text:     strings.Join(lines, "\n"),
		Mentions: &messenger.Mentions{Users: allowed},
	}
}
