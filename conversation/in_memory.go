package conversation

import (
	"fmt"
	"sort"
	"sync"

	"github.com/coterie-ai/coterie/core"
)

// InMemoryStore is a thread-safe, process-local conversation store. Get and
// Save are linearizable per id; values are copied on the way in and out so
// callers never share message slices with the store.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.Conversation
}

// NewInMemoryStore creates an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: map[string]*core.Conversation{}}
}

// Get implements core.Store.
func (s *InMemoryStore) Get(id string) (*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation not found: %s", id)
	}
	return cloneConversation(c), nil
}

// Save implements core.Store.
func (s *InMemoryStore) Save(c *core.Conversation) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("conversation id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = cloneConversation(c)
	return nil
}

// FindChildren implements core.Store; children are returned in creation
// order.
func (s *InMemoryStore) FindChildren(parentID string) ([]*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var children []*core.Conversation
	for _, c := range s.conversations {
		if c.ParentConversationID == parentID {
			children = append(children, cloneConversation(c))
		}
	}
	sort.Slice(children, func(i, j int) bool {
		if children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].ID < children[j].ID
		}
		return children[i].CreatedAt.Before(children[j].CreatedAt)
	})
	return children, nil
}

// List implements core.Store.
func (s *InMemoryStore) List() ([]*core.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*core.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		all = append(all, cloneConversation(c))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all, nil
}

// Delete implements core.Store.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}

func cloneConversation(c *core.Conversation) *core.Conversation {
	cp := *c
	cp.Messages = make([]core.Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}
