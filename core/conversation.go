package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversation is a node of a delegation tree. The root of a tree has an
// empty ParentConversationID; every other node's parent must exist in the
// store. Depth counts delegation hops from the root (root = 0).
//
// A conversation is usable only once ProviderID is set. AgentName selects a
// persona; empty or "default" means none.
type Conversation struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	ProviderID           string    `json:"provider_id,omitempty"`
	AgentName            string    `json:"agent_name,omitempty"`
	Messages             []Message `json:"messages"`
	ParentConversationID string    `json:"parent_conversation_id,omitempty"`
	Depth                int       `json:"depth,omitempty"`
	CreatedAt            time.Time `json:"created_at"`

	// Direct conversations are private channels between two named agents,
	// one per unordered pair. Participant1/Participant2 are stored in
	// normalized order.
	Direct       bool   `json:"direct,omitempty"`
	Participant1 string `json:"participant1,omitempty"`
	Participant2 string `json:"participant2,omitempty"`
}

// NewConversation allocates a root conversation with a fresh id.
func NewConversation(name, providerID, agentName string) *Conversation {
	return &Conversation{
		ID:         uuid.NewString(),
		Name:       name,
		ProviderID: providerID,
		AgentName:  agentName,
		Messages:   []Message{},
		CreatedAt:  time.Now().UTC(),
	}
}

// NewSubConversation allocates a child conversation one delegation level
// below the parent, inheriting provider and agent identity.
func NewSubConversation(name string, parent *Conversation) *Conversation {
	c := NewConversation(name, parent.ProviderID, parent.AgentName)
	c.ParentConversationID = parent.ID
	c.Depth = parent.Depth + 1
	return c
}

// NewDirectConversation allocates the private channel between two named
// agents. Participants are normalized to a case-insensitive order so one
// conversation serves both directions of the pair.
func NewDirectConversation(agentA, agentB, providerID string) *Conversation {
	first, second := agentA, agentB
	if strings.ToLower(second) < strings.ToLower(first) {
		first, second = second, first
	}
	c := NewConversation(first+" & "+second, providerID, "")
	c.Direct = true
	c.Participant1 = first
	c.Participant2 = second
	return c
}

// HasParticipants reports whether a direct conversation connects the given
// pair, in either order.
func (c *Conversation) HasParticipants(agentA, agentB string) bool {
	if !c.Direct {
		return false
	}
	return (strings.EqualFold(c.Participant1, agentA) && strings.EqualFold(c.Participant2, agentB)) ||
		(strings.EqualFold(c.Participant1, agentB) && strings.EqualFold(c.Participant2, agentA))
}

// Append adds a message to the transcript.
func (c *Conversation) Append(m Message) { c.Messages = append(c.Messages, m) }

// LastMessage returns the most recent message, or false for an empty
// transcript.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Complete reports whether this conversation has produced its final output:
// at least one message exists and the last one is assistant-authored. An
// empty transcript is never complete.
func (c *Conversation) Complete() bool {
	last, ok := c.LastMessage()
	return ok && last.Role == RoleAssistant
}

// IsRoot reports whether this conversation heads a delegation tree.
func (c *Conversation) IsRoot() bool { return c.ParentConversationID == "" }

// Store persists conversations keyed by id. Implementations must provide
// linearizable Get/Save per individual id and tolerate concurrent writes to
// different ids. (JSON-file and other durable backends live outside this
// module; InMemoryStore in package conversation satisfies the contract.)
type Store interface {
	Get(id string) (*Conversation, error)
	Save(c *Conversation) error
	FindChildren(parentID string) ([]*Conversation, error)
	List() ([]*Conversation, error)
	Delete(id string) error
}
