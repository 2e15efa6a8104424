package bot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"guildbot/internal/messenger"
)

// Custom ids of the wizard surfaces. Card ids live in internal/event.
const (
	commandName = "events"

	customIDModal     = "event:modal"
	customIDInputName = "name"
	customIDInputWhen = "when"
	customIDInputMax  = "max"
	customIDInputDesc = "description"

	customIDSelectDay    = "event:day"
	customIDSelectHour   = "event:hour"
	customIDSelectMinute = "event:minute"

	customIDCreate = "event:create"
	customIDCancel = "event:cancel"
)

// wizardModal is the response opening the creation modal.
func wizardModal() *discordgo.InteractionResponseData {
	row := func(c discordgo.MessageComponent) discordgo.MessageComponent {
		return discordgo.ActionsRow{Components: []discordgo.MessageComponent{c}}
	}
	return &discordgo.InteractionResponseData{
		CustomID: customIDModal,
		Title:    "Create Event",
		Components: []discordgo.MessageComponent{
			row(discordgo.TextInput{
				CustomID:  customIDInputName,
				Label:     "Event name",
				Style:     discordgo.TextInputShort,
				Required:  true,
				MaxLength: 100,
			}),
			row(discordgo.TextInput{
				CustomID:    customIDInputWhen,
				Label:       "When (e.g. friday 19:00, 2025-12-01 20:00)",
				Style:       discordgo.TextInputShort,
				Required:    false,
				MaxLength:   60,
				Placeholder: "leave empty to pick below",
			}),
			row(discordgo.TextInput{
				CustomID:    customIDInputMax,
				Label:       "Max participants (empty = unlimited)",
				Style:       discordgo.TextInputShort,
				Required:    false,
				MaxLength:   4,
				Placeholder: "e.g. 10",
			}),
			row(discordgo.TextInput{
				CustomID:  customIDInputDesc,
				Label:     "Description",
				Style:     discordgo.TextInputParagraph,
				Required:  false,
				MaxLength: 1000,
			}),
		},
	}
}

// previewData renders the ephemeral draft preview: a summary embed, the
// day/hour/minute pickers and the create/cancel buttons.
func previewData(d *Draft, now time.Time, loc *time.Location) *discordgo.InteractionResponseData {
	when := "not set — pick a day and time below"
	if unix := d.StartUnix(loc); unix > 0 {
		when = messenger.TimestampFull(unix) + " (" + messenger.TimestampRelative(unix) + ")"
	} else if d.WhenText != "" {
		when = fmt.Sprintf("%q (free text, no reminders)", d.WhenText)
	}

	spots := "unlimited"
	if d.Max > 0 {
		spots = strconv.Itoa(d.Max)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "New event: " + d.Name,
		Description: d.Description,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "When", Value: when},
			{Name: "Spots", Value: spots, Inline: true},
		},
	}

	selRow := func(id, placeholder string, opts []discordgo.SelectMenuOption) discordgo.MessageComponent {
		return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    id,
				Placeholder: placeholder,
				Options:     opts,
			},
		}}
	}

	return &discordgo.InteractionResponseData{
		Flags:  discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			selRow(customIDSelectDay, "Day", dayOptions(now, loc, d.Day)),
			selRow(customIDSelectHour, "Hour", hourOptions(d.Hour)),
			selRow(customIDSelectMinute, "Minute", minuteOptions(d.Day != "" || d.Hour >= 0, d.Minute)),
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{CustomID: customIDCreate, Label: "Create", Style: discordgo.SuccessButton},
				discordgo.Button{CustomID: customIDCancel, Label: "Cancel", Style: discordgo.SecondaryButton},
			}},
		},
	}
}

// dayOptions offers today plus the next 13 days.
func dayOptions(now time.Time, loc *time.Location, selected string) []discordgo.SelectMenuOption {
	now = now.In(loc)
	opts := make([]discordgo.SelectMenuOption, 0, 14)
	for i := 0; i < 14; i++ {
		day := now.AddDate(0, 0, i)
		value := day.Format("2006-01-02")
		label := day.Format("Mon 2 Jan")
		switch i {
		case 0:
			label = "Today (" + label + ")"
		case 1:
			label = "Tomorrow (" + label + ")"
		}
		opts = append(opts, discordgo.SelectMenuOption{
			Label:   label,
			Value:   value,
			Default: value == selected,
		})
	}
	return opts
}

func hourOptions(selected int) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, 0, 24)
	for h := 0; h < 24; h++ {
		opts = append(opts, discordgo.SelectMenuOption{
			Label:   fmt.Sprintf("%02d:00", h),
			Value:   strconv.Itoa(h),
			Default: h == selected,
		})
	}
	return opts
}

func minuteOptions(picked bool, selected int) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, 0, 4)
	for _, m := range []int{0, 15, 30, 45} {
		opts = append(opts, discordgo.SelectMenuOption{
			Label:   fmt.Sprintf(":%02d", m),
			Value:   strconv.Itoa(m),
			Default: picked && m == selected,
		})
	}
	return opts
}
