package messenger

import (
	"context"
	"strconv"
	"sync"
)

// Memory is an in-process Client used by service tests. Messages get
// monotonically increasing ids so History paging behaves like the real
// transport (newest first, strictly older than the cursor).
type Memory struct {
	mu     sync.Mutex
	nextID int64
	botID  string

	msgs    map[string][]Message // channelID -> messages, oldest first
	pins    map[string][]string
	threads map[string]string // messageID -> threadID
	gone    map[string]bool   // deleted thread ids

	SendCount   int
	DeleteCount int
}

// NewMemory returns an empty in-memory client acting as bot user botID.
func NewMemory(botID string) *Memory {
	return &Memory{
		nextID:  1000,
		botID:   botID,
		msgs:    map[string][]Message{},
		pins:    map[string][]string{},
		threads: map[string]string{},
		gone:    map[string]bool{},
	}
}

func (m *Memory) BotUserID() string { return m.botID }

func (m *Memory) Send(_ context.Context, channelID string, c Content) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	msg := Message{
		ID:        strconv.FormatInt(m.nextID, 10),
		ChannelID: channelID,
		AuthorID:  m.botID,
		Content:   c.Text,
		Embeds:    c.Embeds,
		CustomIDs: customIDsOf(c),
	}
	m.msgs[channelID] = append(m.msgs[channelID], msg)
	m.SendCount++
	return msg, nil
}

func (m *Memory) Edit(_ context.Context, channelID, messageID string, c Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.msgs[channelID] {
		if msg.ID == messageID {
			msg.Content = c.Text
			msg.Embeds = c.Embeds
			msg.CustomIDs = customIDsOf(c)
			m.msgs[channelID][i] = msg
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Delete(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.msgs[channelID]
	for i, msg := range list {
		if msg.ID == messageID {
			m.msgs[channelID] = append(list[:i:i], list[i+1:]...)
			m.DeleteCount++
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Fetch(_ context.Context, channelID, messageID string) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs[channelID] {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return Message{}, ErrNotFound
}

func (m *Memory) History(_ context.Context, channelID, beforeID string, limit int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.msgs[channelID]
	cursor := int64(0)
	if beforeID != "" {
		cursor, _ = strconv.ParseInt(beforeID, 10, 64)
	}
	var out []Message
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		id, _ := strconv.ParseInt(list[i].ID, 10, 64)
		if cursor != 0 && id >= cursor {
			continue
		}
		out = append(out, list[i])
	}
	return out, nil
}

func (m *Memory) CreateThread(_ context.Context, _, messageID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if th, ok := m.threads[messageID]; ok {
		return th, nil
	}
	m.nextID++
	th := "thread-" + strconv.FormatInt(m.nextID, 10)
	m.threads[messageID] = th
	return th, nil
}

func (m *Memory) DeleteThread(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for msgID, th := range m.threads {
		if th == threadID {
			delete(m.threads, msgID)
			m.gone[threadID] = true
			delete(m.msgs, threadID)
			return nil
		}
	}
	return ErrNotFound
}

// ThreadDeleted reports whether DeleteThread removed the given thread.
func (m *Memory) ThreadDeleted(threadID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gone[threadID]
}

func (m *Memory) Pin(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[channelID] = append(m.pins[channelID], messageID)
	return nil
}

// Messages returns a copy of a channel's messages, oldest first.
func (m *Memory) Messages(channelID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.msgs[channelID]))
	copy(out, m.msgs[channelID])
	return out
}

// Has reports whether the message still exists in the channel.
func (m *Memory) Has(channelID, messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.msgs[channelID] {
		if msg.ID == messageID {
			return true
		}
	}
	return false
}

func customIDsOf(c Content) []string {
	var ids []string
	for _, s := range c.Selects {
		ids = append(ids, s.CustomID)
	}
	for _, b := range c.Buttons {
		if b.CustomID != "" {
			ids = append(ids, b.CustomID)
		}
	}
	return ids
}
