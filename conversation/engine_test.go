package conversation_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coterie-ai/coterie/bot"
	"github.com/coterie-ai/coterie/chat"
	"github.com/coterie-ai/coterie/conversation"
	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/delegation"
	"github.com/coterie-ai/coterie/logging"
	"github.com/coterie-ai/coterie/model"
	"github.com/coterie-ai/coterie/provider"
)

// fullEngine wires the real services end to end over a mock model.
type fullEngine struct {
	mock          *model.MockModel
	store         *conversation.InMemoryStore
	personas      *bot.Service
	conversations *conversation.Service
	delegator     *delegation.Service
}

func newFullEngine(t *testing.T) *fullEngine {
	t.Helper()
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelError,
		Format: "text",
		Output: io.Discard,
	})

	mock := model.NewMockModel("mock-1")
	registry := provider.NewRegistry()
	registry.RegisterFactory("mock", func(cfg provider.Config) (model.Model, error) {
		return mock, nil
	})
	require.NoError(t, registry.Register(provider.Config{ID: "mock", Vendor: "mock", Model: "mock-1"}))

	personas := bot.NewService(bot.NewInMemoryStore())
	store := conversation.NewInMemoryStore()

	chatSvc := chat.NewService(registry, store, personas, func(o *chat.Options) {
		o.DelegationEnabled = true
		o.MaxDelegationDepth = 3
		o.CharsLimit = 8000
		o.PersonalMemoryRatio = 0.25
		o.Logger = logger
	})
	delegator := delegation.NewService(store, chatSvc, logger)
	conversations := conversation.NewService(store, chatSvc, delegator, personas, logger)
	chatSvc.SetPeerMessenger(conversations)

	return &fullEngine{
		mock:          mock,
		store:         store,
		personas:      personas,
		conversations: conversations,
		delegator:     delegator,
	}
}

// A full delegation round trip: the root turn delegates, the sub-agent
// completes, the root is woken with a status digest and produces the final
// answer, all through the public facade.
func TestEngine_DelegationRoundTrip(t *testing.T) {
	eng := newFullEngine(t)

	// Turn order is deterministic with a single sub-agent: the root's tool
	// loop consumes two generations, then the sub-agent's turn, then the
	// wake-up turn.
	eng.mock.Enqueue(
		model.MockTurn{ToolCalls: []core.FunctionCall{{
			ID:        "call-1",
			Name:      "delegate_to_sub_agent",
			Arguments: `{"name":"scout","instruction":"find prior art"}`,
		}}},
		model.MockTurn{Text: "I have sent scout to investigate."},
		model.MockTurn{Text: "Prior art: none found."},
		model.MockTurn{Text: "Final answer: nothing similar exists."},
	)

	conv, err := eng.conversations.Create("research", "mock", "", "")
	require.NoError(t, err)

	answer, err := eng.conversations.SendMessage(context.Background(), conv.ID, "research this idea")
	require.NoError(t, err)
	assert.Equal(t, "I have sent scout to investigate.", answer)

	eng.delegator.Wait()

	root, err := eng.store.Get(conv.ID)
	require.NoError(t, err)
	// user, assistant(turn 1), tool log + digest + assistant from the wake
	require.GreaterOrEqual(t, len(root.Messages), 4)
	last := root.Messages[len(root.Messages)-1]
	assert.Equal(t, core.RoleAssistant, last.Role)
	assert.Equal(t, "Final answer: nothing similar exists.", last.Content)

	var digest string
	for _, m := range root.Messages {
		if m.Role == core.RoleUser && strings.HasPrefix(m.Content, "[Delegation Status Update]") {
			digest = m.Content
		}
	}
	require.NotEmpty(t, digest, "root should receive a status digest")
	assert.Contains(t, digest, "Sub-agent: scout")
	assert.Contains(t, digest, "Status: COMPLETED")
	assert.Contains(t, digest, "All sub-agents have completed.")

	children, err := eng.store.FindChildren(conv.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "scout", children[0].Name)
	assert.Equal(t, 1, children[0].Depth)
	assert.True(t, children[0].Complete())
	assert.Equal(t, "Prior art: none found.", children[0].Messages[len(children[0].Messages)-1].Content)

	// The first turn persisted a structured parts envelope (tool activity).
	assistant := root.Messages[1]
	assert.Equal(t, core.RoleAssistant, assistant.Role)
	assert.True(t, strings.HasPrefix(assistant.Content, `{"parts":`))
	flat := core.FlattenParts(assistant.Content)
	assert.Contains(t, flat, "[delegate_to_sub_agent]")
	assert.Contains(t, flat, "I have sent scout to investigate.")
}

// A named agent's turn lands in personal memory and the memory feeds the
// next prompt.
func TestEngine_NamedAgentPersonalMemory(t *testing.T) {
	eng := newFullEngine(t)
	_, err := eng.personas.Create("ada", "A meticulous archivist.")
	require.NoError(t, err)

	eng.mock.Enqueue(
		model.MockTurn{Text: "Noted, the launch is on Friday."},
		model.MockTurn{Text: "You told me the launch is on Friday."},
	)

	conv, err := eng.conversations.Create("memory check", "mock", "ada", "")
	require.NoError(t, err)

	_, err = eng.conversations.SendMessage(context.Background(), conv.ID, "the launch is on Friday")
	require.NoError(t, err)

	entries := eng.personas.LoadPersonalMemory("ada")
	require.Len(t, entries, 2)
	assert.Equal(t, core.RoleUser, entries[0].Role)
	assert.Equal(t, "the launch is on Friday", entries[0].Content)
	assert.Equal(t, core.RoleAssistant, entries[1].Role)

	// second conversation; the persona soul rides in as the system prompt
	conv2, err := eng.conversations.Create("later", "mock", "ada", "")
	require.NoError(t, err)
	_, err = eng.conversations.SendMessage(context.Background(), conv2.ID, "when is the launch?")
	require.NoError(t, err)

	reqs := eng.mock.Requests()
	require.Len(t, reqs, 2)
	second := reqs[1]
	require.NotEmpty(t, second.Contents)
	assert.Equal(t, core.RoleSystem, second.Contents[0].Role)
	assert.Equal(t, "A meticulous archivist.", second.Contents[0].Text())
	var sawMemory bool
	for _, c := range second.Contents {
		if c.Role == core.RoleSystem && strings.HasPrefix(c.Text(), "Personal memory") {
			sawMemory = true
		}
	}
	assert.True(t, sawMemory, "personal memory block should ride into the second prompt")
}

// A named agent reaches another named agent mid-turn: the message_bot tool
// runs a reentrant turn under the recipient's identity over a shared direct
// conversation, which is created on first contact and reused afterwards.
func TestEngine_BotToBotMessaging(t *testing.T) {
	eng := newFullEngine(t)
	_, err := eng.personas.Create("ada", "A meticulous archivist.")
	require.NoError(t, err)
	_, err = eng.personas.Create("grace", "A pragmatic engineer.")
	require.NoError(t, err)

	// ada's tool loop, grace's reentrant turn, then ada's final answer
	eng.mock.Enqueue(
		model.MockTurn{ToolCalls: []core.FunctionCall{{
			ID:        "call-1",
			Name:      "message_bot",
			Arguments: `{"targetBotName":"grace","message":"is the report done?"}`,
		}}},
		model.MockTurn{Text: "The report is done."},
		model.MockTurn{Text: "Grace says the report is done."},
	)

	conv, err := eng.conversations.Create("ask grace", "mock", "ada", "")
	require.NoError(t, err)
	answer, err := eng.conversations.SendMessage(context.Background(), conv.ID, "check with grace on the report")
	require.NoError(t, err)
	assert.Equal(t, "Grace says the report is done.", answer)

	all, err := eng.store.List()
	require.NoError(t, err)
	var direct *core.Conversation
	for _, c := range all {
		if c.Direct {
			require.Nil(t, direct, "one direct conversation per pair")
			direct = c
		}
	}
	require.NotNil(t, direct)
	assert.Equal(t, "ada", direct.Participant1)
	assert.Equal(t, "grace", direct.Participant2)
	require.Len(t, direct.Messages, 2)
	assert.Equal(t, core.RoleUser, direct.Messages[0].Role)
	assert.Equal(t, "(from ada) is the report done?", direct.Messages[0].Content)
	assert.Equal(t, "The report is done.", direct.Messages[1].Content)

	// the reentrant turn lands in the recipient's personal memory
	entries := eng.personas.LoadPersonalMemory("grace")
	require.Len(t, entries, 2)
	assert.Equal(t, "(from ada) is the report done?", entries[0].Content)
	assert.Equal(t, "The report is done.", entries[1].Content)

	// a second exchange reuses the same direct conversation
	eng.mock.Enqueue(
		model.MockTurn{ToolCalls: []core.FunctionCall{{
			ID:        "call-2",
			Name:      "message_bot",
			Arguments: `{"targetBotName":"grace","message":"and the benchmarks?"}`,
		}}},
		model.MockTurn{Text: "Benchmarks run tonight."},
		model.MockTurn{Text: "Benchmarks run tonight, per grace."},
	)
	_, err = eng.conversations.SendMessage(context.Background(), conv.ID, "ask about benchmarks too")
	require.NoError(t, err)

	reused, err := eng.store.Get(direct.ID)
	require.NoError(t, err)
	assert.Len(t, reused.Messages, 4)
}

// Streaming through the facade yields chunks and persists the result.
func TestEngine_Streaming(t *testing.T) {
	eng := newFullEngine(t)
	eng.mock.Enqueue(model.MockTurn{
		Chunks: []model.MockChunk{
			{Text: "let me think", Metadata: map[string]string{"thinking": "let me think"}},
			{Text: "Hello"},
			{Text: " world"},
		},
	})

	conv, err := eng.conversations.Create("stream", "mock", "", "")
	require.NoError(t, err)

	ch, err := eng.conversations.SendMessageStream(context.Background(), conv.ID, "hi", nil)
	require.NoError(t, err)

	var reasoning, answer strings.Builder
	for chunk := range ch {
		switch chunk.Type {
		case core.ChunkReasoning:
			reasoning.WriteString(chunk.Content)
		case core.ChunkAnswer:
			answer.WriteString(chunk.Content)
		}
	}
	assert.Equal(t, "let me think", reasoning.String())
	assert.Equal(t, "Hello world", answer.String())

	stored, err := eng.store.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, core.RoleAssistant, stored.Messages[1].Role)
}
