package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	contractx "github.com/yugent/yugent/agent/contract"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidConversation  = errors.New("conversation id is empty")
)

// Store is the persistence contract for conversations. Implementations must
// preserve message order exactly.
type Store interface {
	Load(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps conversations in process memory. Useful for tests and
// single-process deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]contractx.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]contractx.Message)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidConversation
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return Restore(id, messages), nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Conversation) error {
	if c == nil {
		return errors.New("conversation is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[c.ID()] = c.History()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidConversation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
