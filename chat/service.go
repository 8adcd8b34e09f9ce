package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/coterie-ai/coterie/bot"
	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/delegation"
	"github.com/coterie-ai/coterie/logging"
	"github.com/coterie-ai/coterie/model"
	"github.com/coterie-ai/coterie/tool"
)

// ModelResolver resolves a configured provider id to a usable model.
// Unknown ids are configuration errors and fail fast.
type ModelResolver interface {
	Resolve(providerID string) (model.Model, error)
}

// Personas supplies persona and personal-memory context for named agents.
type Personas interface {
	Names() []string
	LoadSoul(name string) string
	LoadPersonalMemoryTrimmed(name string, maxChars int) []bot.PersonalMemoryEntry
	LoadPersonalMemory(name string) []bot.PersonalMemoryEntry
}

// PeerMessenger delivers a message from one named agent to another over
// their direct conversation and returns the reply. Implemented by the
// conversation facade; injected after construction since the facade is
// built on top of this service.
type PeerMessenger interface {
	SendMessageBotToBot(ctx context.Context, fromAgent, toAgent, message, providerID string) (string, error)
}

// Options configure the chat service.
type Options struct {
	// SystemInstructions is prepended to every prompt.
	SystemInstructions string

	// DelegationEnabled wires the delegation tools into every turn that
	// runs inside a stored conversation.
	DelegationEnabled bool

	// MaxDelegationDepth bounds the delegation tree; 0 disables the guard.
	MaxDelegationDepth int

	// CharsLimit is the total context character budget per turn.
	CharsLimit int

	// PersonalMemoryRatio is the share of CharsLimit reserved for a named
	// agent's personal memory, clamped to [0,1].
	PersonalMemoryRatio float64

	// Tools are additional (already namespaced) tools offered on every turn.
	Tools []tool.Tool

	Logger *logging.DaemonLogger

	// ChunkBuffer sizes the caller-visible chunk channel.
	ChunkBuffer int

	// ToolEventBuffer bounds the live tool-event side channel; a stalled
	// consumer blocks tool execution rather than growing memory.
	ToolEventBuffer int
}

// Service runs model turns: prompt construction, the streaming tool-call
// loop, chunk aggregation and error-turn conversion.
type Service struct {
	models   ModelResolver
	store    core.Store
	personas Personas
	peers    PeerMessenger
	opts     Options
	logger   *logging.DaemonLogger
}

// NewService creates a chat service. store may be nil when delegation is
// disabled; personas may be nil when no persona layer is configured.
func NewService(models ModelResolver, store core.Store, personas Personas, optFns ...func(o *Options)) *Service {
	opts := Options{
		ChunkBuffer:     100,
		ToolEventBuffer: 64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.PersonalMemoryRatio < 0 {
		opts.PersonalMemoryRatio = 0
	}
	if opts.PersonalMemoryRatio > 1 {
		opts.PersonalMemoryRatio = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(nil)
	}
	return &Service{
		models:   models,
		store:    store,
		personas: personas,
		opts:     opts,
		logger:   logger.WithComponent("chat"),
	}
}

// SetPeerMessenger enables the bot-to-bot messaging tools for named
// agents. Must be called during wiring, before turns run.
func (s *Service) SetPeerMessenger(p PeerMessenger) {
	s.peers = p
}

// splitBudget divides the total character budget between conversation
// history and personal memory. Only a named (non-default) agent identity
// gets the memory share; the default identity keeps the full budget for
// history.
func (s *Service) splitBudget(agentName string) (historyBudget, memoryBudget int) {
	if !namedAgent(agentName) {
		return s.opts.CharsLimit, 0
	}
	historyBudget = int(float64(s.opts.CharsLimit) * (1 - s.opts.PersonalMemoryRatio))
	memoryBudget = int(float64(s.opts.CharsLimit) * s.opts.PersonalMemoryRatio)
	return historyBudget, memoryBudget
}

func namedAgent(name string) bool {
	return name != "" && !strings.EqualFold(name, "default")
}

// Stream runs one model turn and returns a channel of live chunks. The
// channel closes when the turn completes; onComplete (optional) receives
// the collected ChatResult just before the close. Configuration errors
// (unknown provider) are returned immediately; model and tool failures are
// converted into a completed error turn whose response text begins with
// "[Error] " and whose pending-sub-conversation list is empty.
func (s *Service) Stream(ctx context.Context, providerID string, messages []core.Message,
	conversationID, agentName string, onComplete func(core.ChatResult)) (<-chan core.StreamChunk, error) {

	mdl, err := s.models.Resolve(providerID)
	if err != nil {
		return nil, err
	}

	historyBudget, memoryBudget := s.splitBudget(agentName)
	filtered := core.WithoutRole(messages, core.RoleTool)

	transcript := tool.NewTranscript()
	sink := make(chan core.StreamChunk, s.opts.ToolEventBuffer)

	turnTools := historyTools(filtered, historyBudget, agentName, s.personas)
	turnTools = append(turnTools, s.opts.Tools...)
	if s.peers != nil && namedAgent(agentName) {
		turnTools = append(turnTools, peerTools(s.peers, s.personas, agentName, providerID)...)
	}

	var delegationTools *delegation.Tools
	if s.opts.DelegationEnabled && conversationID != "" && s.store != nil {
		parentDepth := 0
		if conv, err := s.store.Get(conversationID); err == nil {
			parentDepth = conv.Depth
		}
		delegationTools = delegation.NewTools(s.store, conversationID, providerID, agentName,
			parentDepth, s.opts.MaxDelegationDepth)
		turnTools = append(turnTools, delegationTools.All()...)
	}

	byName := make(map[string]tool.Tool, len(turnTools))
	defs := make([]model.ToolDefinition, 0, len(turnTools))
	for _, t := range turnTools {
		byName[t.Name()] = tool.Record(t, transcript, sink)
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	req := buildPrompt(messages, agentName, historyBudget, memoryBudget, s.opts.SystemInstructions, s.personas)
	req.Tools = defs
	req.Stream = mdl.Info().SupportsStream

	out := make(chan core.StreamChunk, s.opts.ChunkBuffer)
	agg := &aggregator{}
	emit := func(c core.StreamChunk) bool {
		agg.observe(c)
		select {
		case out <- c:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var forwarder sync.WaitGroup
	forwarder.Add(1)
	go func() {
		defer forwarder.Done()
		for c := range sink {
			if !emit(c) {
				for range sink {
				}
				return
			}
		}
	}()

	logger := s.logger.WithConversation(conversationID)
	go func() {
		defer close(out)
		turnErr := s.runTurn(ctx, mdl, req, byName, emit)
		close(sink)
		forwarder.Wait()

		var result core.ChatResult
		if turnErr != nil {
			logger.Error("turn failed", "provider_id", providerID, "error", turnErr)
			msg := "[Error] " + turnErr.Error()
			result = core.ChatResult{Response: msg, ToolMessages: transcript.Messages()}
			select {
			case out <- core.StreamChunk{Type: core.ChunkAnswer, Content: msg}:
			case <-ctx.Done():
			}
		} else {
			var pending []string
			if delegationTools != nil {
				pending = delegationTools.PendingSubConversationIDs()
			}
			result = agg.result(transcript.Messages(), pending)
		}
		if onComplete != nil {
			onComplete(result)
		}
	}()

	return out, nil
}

// StreamAndCollect runs one turn synchronously, draining the chunk stream
// and returning the collected result.
func (s *Service) StreamAndCollect(ctx context.Context, providerID string, messages []core.Message,
	conversationID, agentName string) (core.ChatResult, error) {

	var result core.ChatResult
	ch, err := s.Stream(ctx, providerID, messages, conversationID, agentName, func(r core.ChatResult) {
		result = r
	})
	if err != nil {
		return core.ChatResult{}, err
	}
	for range ch {
	}
	return result, nil
}
