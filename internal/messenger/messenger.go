// Package messenger is the narrow outbound surface the bot core talks
// through. Schedulers and stores depend on Client only; the discordgo
// adapter lives behind it so service logic stays testable against the
// in-memory implementation.
package messenger

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the referenced channel or message no
// longer exists. Delete-intent callers treat it as success.
var ErrNotFound = errors.New("messenger: not found")

// ButtonStyle selects the rendering of an interactive button.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonLink
)

// Button is one interactive button. Link buttons carry URL and no CustomID.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
	URL      string
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label   string
	Value   string
	Default bool
}

// SelectMenu is a single-choice dropdown.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the structured portion of a rich message.
type Embed struct {
	Title       string
	Description string
	Fields      []EmbedField
	Footer      string
}

// Mentions is the allow-list attached to a message. Empty means nothing
// is allowed to ping.
type Mentions struct {
	Users    []string
	Everyone bool
}

// Content is everything a message can carry. Buttons render as one row;
// each select menu gets its own row.
type Content struct {
	Text     string
	Embeds   []Embed
	Buttons  []Button
	Selects  []SelectMenu
	Mentions *Mentions
}

// Message is the read-side view of a posted message, reduced to what the
// core inspects: identity, author, and every place an event id can hide.
type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Embeds    []Embed
	CustomIDs []string
}

// Client sends, edits, deletes and reads messages. All calls honor ctx;
// implementations surface missing entities as ErrNotFound.
type Client interface {
	Send(ctx context.Context, channelID string, c Content) (Message, error)
	Edit(ctx context.Context, channelID, messageID string, c Content) error
	Delete(ctx context.Context, channelID, messageID string) error
	Fetch(ctx context.Context, channelID, messageID string) (Message, error)
	// History pages backward: up to limit messages older than beforeID
	// (or the newest ones when beforeID is empty), newest first.
	History(ctx context.Context, channelID, beforeID string, limit int) ([]Message, error)
	CreateThread(ctx context.Context, channelID, messageID, name string) (threadID string, err error)
	DeleteThread(ctx context.Context, threadID string) error
	// Pin is best-effort; callers ignore its error.
	Pin(ctx context.Context, channelID, messageID string) error
	// BotUserID identifies the bot's own messages in history scans.
	BotUserID() string
}
