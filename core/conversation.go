package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/voxloop/vox-core/core/backend"
)

// Sender describes who produced a conversation entry.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// EntryStatus tracks the delivery state of a conversation entry.
type EntryStatus string

const (
	StatusSending EntryStatus = "sending"
	StatusSent    EntryStatus = "sent"
	StatusError   EntryStatus = "error"
)

// ConversationEntry is one visible message of the conversation. Entries are
// append-only except for in-place status transitions on the most recent
// pending entry.
type ConversationEntry struct {
	ID          string
	Content     string
	Sender      Sender
	Timestamp   time.Time
	Status      EntryStatus
	ErrorDetail string
}

type conversationLog struct {
	mu      sync.RWMutex
	entries []ConversationEntry
}

func newConversationLog() *conversationLog {
	return &conversationLog{}
}

func (c *conversationLog) append(sender Sender, content string, status EntryStatus) ConversationEntry {
	entry := ConversationEntry{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
		Status:    status,
	}

	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()

	return entry
}

// updateLastPending applies update to the most recent entry still in the
// sending state. Reports whether such an entry existed.
func (c *conversationLog) updateLastPending(update func(*ConversationEntry)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].Status != StatusSending {
			continue
		}

		update(&c.entries[i])
		return true
	}

	return false
}

// Snapshot returns a deep copy of the entry sequence in order.
func (c *conversationLog) Snapshot() []ConversationEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := []ConversationEntry{}
	_ = copier.Copy(&entries, &c.entries)
	return entries
}

// settledExchanges maps the settled portion of the conversation onto backend
// context, skipping pending and failed entries.
func (c *conversationLog) settledExchanges() []backend.Exchange {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var exchanges []backend.Exchange
	for _, entry := range c.entries {
		if entry.Status != StatusSent {
			continue
		}

		role := backend.RoleUser
		if entry.Sender == SenderAssistant {
			role = backend.RoleAssistant
		}
		exchanges = append(exchanges, backend.Exchange{Role: role, Content: entry.Content})
	}

	return exchanges
}

func (c *conversationLog) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
