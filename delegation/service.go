package delegation

import (
	"context"
	"strings"
	"sync"

	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/logging"
)

// TurnRunner runs one full model turn for a conversation. Model and tool
// failures are reported inside the ChatResult (an "[Error] " response);
// the error return is reserved for configuration problems such as an
// unknown provider.
type TurnRunner interface {
	StreamAndCollect(ctx context.Context, providerID string, messages []core.Message,
		conversationID, agentName string) (core.ChatResult, error)
}

// Service is the delegation orchestrator. Pending sub-agents run as
// independent goroutines; parent wake-ups are serialized per parent id so
// that siblings completing near-simultaneously produce consistent digests.
type Service struct {
	store  core.Store
	runner TurnRunner
	logger *logging.DaemonLogger

	mu          sync.Mutex
	parentLocks map[string]*sync.Mutex

	wg sync.WaitGroup
}

// NewService creates the orchestrator.
func NewService(store core.Store, runner TurnRunner, logger *logging.DaemonLogger) *Service {
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &Service{
		store:       store,
		runner:      runner,
		logger:      logger.WithComponent("delegation"),
		parentLocks: map[string]*sync.Mutex{},
	}
}

// StartSubAgents schedules every pending sub-conversation for asynchronous
// execution and returns immediately.
func (s *Service) StartSubAgents(ctx context.Context, pendingSubConversationIDs []string) {
	for _, subID := range pendingSubConversationIDs {
		id := subID
		s.schedule(func() { s.executeSubAgent(ctx, id) })
	}
}

// Wait blocks until every scheduled sub-agent execution and wake-up has
// finished. Used on shutdown and by tests asserting tree quiescence.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) schedule(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// executeSubAgent runs one full turn of a sub-agent conversation and
// persists the outcome. A turn that spawned further delegations recurses
// into those instead of waking the parent; everything else, success or a
// failed turn, wakes the parent. Once scheduled, a sub-agent runs to
// completion; there is no cancellation of an in-flight run.
func (s *Service) executeSubAgent(ctx context.Context, subConversationID string) {
	sub, err := s.store.Get(subConversationID)
	if err != nil {
		s.logger.Error("sub-conversation not found", "conversation_id", subConversationID, "error", err)
		return
	}
	s.logger.LogDelegation("sub_agent_started", subConversationID, map[string]any{"name": sub.Name})

	result, err := s.runner.StreamAndCollect(ctx, sub.ProviderID, sub.Messages, subConversationID, sub.AgentName)
	if err != nil {
		s.logger.Error("sub-agent execution failed", "conversation_id", subConversationID, "error", err)
		sub.Append(core.NewMessage(core.RoleAssistant, "[Error] "+err.Error()))
		if saveErr := s.store.Save(sub); saveErr != nil {
			s.logger.Error("failed to persist sub-agent error turn", "conversation_id", subConversationID, "error", saveErr)
			return
		}
		s.wakeUpParent(ctx, sub.ParentConversationID)
		return
	}

	sub.Messages = append(sub.Messages, result.ToolMessages...)
	sub.Append(core.NewMessage(core.RoleAssistant, result.Response))
	if err := s.store.Save(sub); err != nil {
		s.logger.Error("failed to persist sub-agent turn", "conversation_id", subConversationID, "error", err)
		return
	}
	s.logger.LogDelegation("sub_agent_completed", subConversationID, map[string]any{"name": sub.Name})

	if len(result.PendingSubConversationIDs) > 0 {
		s.StartSubAgents(ctx, result.PendingSubConversationIDs)
		return
	}
	s.wakeUpParent(ctx, sub.ParentConversationID)
}

// wakeUpParent appends a status digest over all direct children to the
// parent and runs one turn on it, serialized per parent id. If that turn
// delegated again, the new sub-agents run first; otherwise, when every
// child is complete and the parent itself has a parent, the wake
// propagates one level up. A root conversation reaching that point is
// terminal: the tree is quiescent and the per-parent lock is evicted.
func (s *Service) wakeUpParent(ctx context.Context, parentID string) {
	if parentID == "" {
		return
	}

	lock := s.lockFor(parentID)
	lock.Lock()
	evict := false
	defer func() {
		lock.Unlock()
		if evict {
			s.evictLock(parentID)
		}
	}()

	parent, err := s.store.Get(parentID)
	if err != nil {
		s.logger.Warn("parent conversation not found", "conversation_id", parentID, "error", err)
		return
	}
	subs, err := s.store.FindChildren(parentID)
	if err != nil {
		s.logger.Error("failed to load children", "conversation_id", parentID, "error", err)
		return
	}
	allComplete := childrenComplete(subs)
	s.logger.LogDelegation("parent_wakeup", parentID, map[string]any{
		"name":         parent.Name,
		"all_complete": allComplete,
	})

	parent.Append(core.NewMessage(core.RoleUser, statusDigest(subs, allComplete)))

	result, err := s.runner.StreamAndCollect(ctx, parent.ProviderID, parent.Messages, parentID, parent.AgentName)
	if err != nil {
		s.logger.Error("parent wake-up turn failed", "conversation_id", parentID, "error", err)
		return
	}
	parent.Messages = append(parent.Messages, result.ToolMessages...)
	parent.Append(core.NewMessage(core.RoleAssistant, result.Response))
	if err := s.store.Save(parent); err != nil {
		s.logger.Error("failed to persist parent turn", "conversation_id", parentID, "error", err)
		return
	}

	if len(result.PendingSubConversationIDs) > 0 {
		s.StartSubAgents(ctx, result.PendingSubConversationIDs)
		return
	}

	updated, err := s.store.FindChildren(parentID)
	if err != nil {
		s.logger.Error("failed to reload children", "conversation_id", parentID, "error", err)
		return
	}
	if childrenComplete(updated) {
		if parent.ParentConversationID != "" {
			grandparentID := parent.ParentConversationID
			s.schedule(func() { s.wakeUpParent(ctx, grandparentID) })
			return
		}
		evict = true
	}
}

// childrenComplete reports whether every child has produced its final
// output: at least one message, the last one assistant-authored. An empty
// child never counts as complete.
func childrenComplete(subs []*core.Conversation) bool {
	for _, sub := range subs {
		if !sub.Complete() {
			return false
		}
	}
	return true
}

// statusDigest renders the wake-up message: per-child status plus the full
// non-tool transcript, and a closing instruction depending on whether all
// children are done.
func statusDigest(subs []*core.Conversation, allComplete bool) string {
	var sb strings.Builder
	sb.WriteString("[Delegation Status Update]\n")
	sb.WriteString("Your sub-agents have been working. Current status:\n\n")

	for _, sub := range subs {
		sb.WriteString("--- Sub-agent: ")
		sb.WriteString(sub.Name)
		sb.WriteString(" (")
		sb.WriteString(sub.ID)
		sb.WriteString(") ---\n")
		if sub.Complete() {
			sb.WriteString("Status: COMPLETED\n")
		} else {
			sb.WriteString("Status: PENDING\n")
		}
		for _, msg := range sub.Messages {
			if msg.Role == core.RoleTool {
				continue
			}
			sb.WriteString(strings.ToUpper(msg.Role))
			sb.WriteString(": ")
			sb.WriteString(msg.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if allComplete {
		sb.WriteString("All sub-agents have completed. Review the results and provide your final response to the user. ")
		sb.WriteString("If any sub-agent's work needs revision, use add_work_to_sub_agent to send additional instructions.")
		sb.WriteString("You can always create new delegates if you see more tasks that can be split knowing the current state.")
	} else {
		sb.WriteString("Some sub-agents are still working. Review completed work. ")
		sb.WriteString("Use add_work_to_sub_agent if any completed sub-agent needs revision. ")
		sb.WriteString("You will be woken up again when more sub-agents complete.")
		sb.WriteString("But if you think you don't need more data you can respond to your caller without waiting for other sub-agents.")
	}

	return sb.String()
}

func (s *Service) lockFor(parentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.parentLocks[parentID]
	if !ok {
		l = &sync.Mutex{}
		s.parentLocks[parentID] = l
	}
	return l
}

func (s *Service) evictLock(parentID string) {
	s.mu.Lock()
	delete(s.parentLocks, parentID)
	s.mu.Unlock()
}
