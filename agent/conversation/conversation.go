package conversation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	contractx "github.com/yugent/yugent/agent/contract"
)

// Conversation is the append-only message log backing one dialogue. Order is
// conversation order and is the context submitted to the LLM layer; prior
// entries are never mutated. The pipeline owns all writes; layers only ever
// see History snapshots.
type Conversation struct {
	id string

	mu       sync.Mutex
	messages []contractx.Message
}

func New(id string) *Conversation {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		trimmed = uuid.NewString()
	}
	return &Conversation{id: trimmed}
}

// Restore rebuilds a conversation from persisted messages.
func Restore(id string, messages []contractx.Message) *Conversation {
	c := New(id)
	c.messages = contractx.CloneMessages(messages)
	return c
}

func (c *Conversation) ID() string {
	return c.id
}

// Append adds messages to the end of the log.
func (c *Conversation) Append(messages ...contractx.Message) {
	if len(messages) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range messages {
		c.messages = append(c.messages, contractx.CloneMessage(m))
	}
}

// Latest returns the most recent message, optionally restricted to the given
// roles. An empty or non-matching log yields ErrNotFound, never a sentinel
// message.
func (c *Conversation) Latest(roles ...contractx.Role) (contractx.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if len(roles) == 0 || matchesRole(c.messages[i].Role, roles) {
			return contractx.CloneMessage(c.messages[i]), nil
		}
	}
	return contractx.Message{}, fmt.Errorf("%w: conversation %s", contractx.ErrNotFound, c.id)
}

// History returns the full ordered sequence as a read-only snapshot.
func (c *Conversation) History() []contractx.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return contractx.CloneMessages(c.messages)
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Rewind discards messages beyond n. Only the pipeline calls this, to roll an
// aborted cycle back to its pre-execute state; committed turns are never
// touched.
func (c *Conversation) Rewind(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}

func matchesRole(role contractx.Role, roles []contractx.Role) bool {
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
