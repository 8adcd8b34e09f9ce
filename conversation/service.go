// Package conversation is the engine facade: it owns the conversation
// lifecycle and ties prompt building, model turns, persistence, personal
// memory and delegation together per inbound user message.
package conversation

import (
	"context"
	"fmt"

	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/logging"
)

// Turns runs model turns (the chat service).
type Turns interface {
	Stream(ctx context.Context, providerID string, messages []core.Message,
		conversationID, agentName string, onComplete func(core.ChatResult)) (<-chan core.StreamChunk, error)
	StreamAndCollect(ctx context.Context, providerID string, messages []core.Message,
		conversationID, agentName string) (core.ChatResult, error)
}

// Delegator schedules pending sub-agent conversations (the delegation
// orchestrator). Optional.
type Delegator interface {
	StartSubAgents(ctx context.Context, pendingSubConversationIDs []string)
}

// Memory records completed turns into a named agent's personal memory.
// Optional.
type Memory interface {
	AppendTurn(name, userContent string, toolMessages []core.Message, assistantContent string)
}

// Service is the conversation engine facade. Callers must not submit two
// concurrent turns against the same conversation id; that path is
// deliberately unlocked (single-writer contract).
type Service struct {
	store     core.Store
	turns     Turns
	delegator Delegator
	memory    Memory
	logger    *logging.DaemonLogger
}

// NewService creates the facade. delegator and memory may be nil.
func NewService(store core.Store, turns Turns, delegator Delegator, memory Memory,
	logger *logging.DaemonLogger) *Service {
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &Service{
		store:     store,
		turns:     turns,
		delegator: delegator,
		memory:    memory,
		logger:    logger.WithComponent("conversation"),
	}
}

// Create allocates and persists a new conversation. agentName may be empty
// or "default" for no persona; parentID may be empty for a root.
func (s *Service) Create(name, providerID, agentName, parentID string) (*core.Conversation, error) {
	c := core.NewConversation(name, providerID, agentName)
	if parentID != "" {
		parent, err := s.store.Get(parentID)
		if err != nil {
			return nil, fmt.Errorf("parent conversation not found: %s", parentID)
		}
		c.ParentConversationID = parent.ID
		c.Depth = parent.Depth + 1
	}
	if err := s.store.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get loads a conversation by id.
func (s *Service) Get(conversationID string) (*core.Conversation, error) {
	return s.store.Get(conversationID)
}

// List returns all stored conversations.
func (s *Service) List() ([]*core.Conversation, error) {
	return s.store.List()
}

// Delete removes a conversation.
func (s *Service) Delete(conversationID string) error {
	return s.store.Delete(conversationID)
}

// UpdateProvider switches the provider used for future turns.
func (s *Service) UpdateProvider(conversationID, providerID string) (*core.Conversation, error) {
	c, err := s.store.Get(conversationID)
	if err != nil {
		return nil, err
	}
	c.ProviderID = providerID
	if err := s.store.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

// SendMessage runs one synchronous turn: append the user message, run the
// model, persist the assistant output (structured parts envelope when the
// turn interleaved tools or reasoning), record the turn into personal
// memory and hand any pending sub-conversations to the delegator. The
// returned string is the flat answer text; a failed turn yields text
// beginning with "[Error] ".
func (s *Service) SendMessage(ctx context.Context, conversationID, text string) (string, error) {
	c, err := s.store.Get(conversationID)
	if err != nil {
		return "", err
	}
	if c.ProviderID == "" {
		return "", fmt.Errorf("no provider selected for conversation: %s", conversationID)
	}
	c.Append(core.NewMessage(core.RoleUser, text))

	result, err := s.turns.StreamAndCollect(ctx, c.ProviderID, c.Messages, conversationID, c.AgentName)
	if err != nil {
		return "", err
	}
	if err := s.persistTurn(c, text, result); err != nil {
		return "", err
	}
	s.dispatchPending(ctx, result)
	return result.Response, nil
}

// SendMessageStream runs one streaming turn, yielding live chunks. The
// user message is persisted before the stream starts; the assistant output
// is persisted from the completion callback. onComplete (optional) runs
// after persistence with the collected result.
func (s *Service) SendMessageStream(ctx context.Context, conversationID, text string,
	onComplete func(core.ChatResult)) (<-chan core.StreamChunk, error) {

	c, err := s.store.Get(conversationID)
	if err != nil {
		return nil, err
	}
	if c.ProviderID == "" {
		return nil, fmt.Errorf("no provider selected for conversation: %s", conversationID)
	}
	c.Append(core.NewMessage(core.RoleUser, text))
	if err := s.store.Save(c); err != nil {
		return nil, err
	}

	return s.turns.Stream(ctx, c.ProviderID, c.Messages, conversationID, c.AgentName, func(result core.ChatResult) {
		if err := s.persistTurn(c, text, result); err != nil {
			s.logger.Error("failed to persist turn", "conversation_id", conversationID, "error", err)
		}
		s.dispatchPending(ctx, result)
		if onComplete != nil {
			onComplete(result)
		}
	})
}

// SendMessageBotToBot delivers a message from one named agent to another
// over their direct conversation, creating it on first contact and reusing
// it afterwards. The turn runs under the recipient's identity, so the reply
// carries the recipient's persona and lands in its personal memory. The
// sender is named in the delivered text since both directions share one
// transcript.
func (s *Service) SendMessageBotToBot(ctx context.Context, fromAgent, toAgent, message,
	providerID string) (string, error) {

	if providerID == "" {
		return "", fmt.Errorf("no provider selected for bot-to-bot messaging")
	}
	c, err := s.directConversation(fromAgent, toAgent, providerID)
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("(from %s) %s", fromAgent, message)
	c.Append(core.NewMessage(core.RoleUser, text))

	result, err := s.turns.StreamAndCollect(ctx, providerID, c.Messages, c.ID, toAgent)
	if err != nil {
		return "", err
	}
	c.Append(core.NewMessage(core.RoleAssistant, result.AssistantContent()))
	if err := s.store.Save(c); err != nil {
		return "", err
	}
	if s.memory != nil {
		s.memory.AppendTurn(toAgent, text, result.ToolMessages, result.Response)
	}
	s.dispatchPending(ctx, result)
	return result.Response, nil
}

func (s *Service) directConversation(agentA, agentB, providerID string) (*core.Conversation, error) {
	all, err := s.store.List()
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if c.HasParticipants(agentA, agentB) {
			if c.ProviderID == "" {
				c.ProviderID = providerID
			}
			return c, nil
		}
	}
	c := core.NewDirectConversation(agentA, agentB, providerID)
	if err := s.store.Save(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) persistTurn(c *core.Conversation, userText string, result core.ChatResult) error {
	c.Append(core.NewMessage(core.RoleAssistant, result.AssistantContent()))
	if err := s.store.Save(c); err != nil {
		return err
	}
	if s.memory != nil {
		s.memory.AppendTurn(c.AgentName, userText, result.ToolMessages, result.Response)
	}
	return nil
}

func (s *Service) dispatchPending(ctx context.Context, result core.ChatResult) {
	if s.delegator == nil || len(result.PendingSubConversationIDs) == 0 {
		return
	}
	s.delegator.StartSubAgents(ctx, result.PendingSubConversationIDs)
}
