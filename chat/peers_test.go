package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coterie-ai/coterie/tool"
)

type stubPeers struct {
	reply string
	err   error

	fromAgent  string
	toAgent    string
	message    string
	providerID string
}

func (p *stubPeers) SendMessageBotToBot(_ context.Context, fromAgent, toAgent, message,
	providerID string) (string, error) {
	p.fromAgent, p.toAgent, p.message, p.providerID = fromAgent, toAgent, message, providerID
	return p.reply, p.err
}

func TestListPeers(t *testing.T) {
	personas := stubPersonas{names: []string{"Ada", "grace", "linus"}}

	assert.Equal(t, "Other bots: Ada, grace", listPeers(personas, "Linus"))
	assert.Equal(t, "No bots found.", listPeers(stubPersonas{}, "ada"))
	// the only configured bot is the caller itself
	assert.Equal(t, "No bots found.", listPeers(stubPersonas{names: []string{"ADA"}}, "ada"))
}

func TestMessagePeer_Guards(t *testing.T) {
	peers := &stubPeers{}

	out := messagePeer(context.Background(), peers, "default", "ada", "hi", "p1")
	assert.Equal(t, "Bot-to-bot messaging is only available for named bots.", out)

	out = messagePeer(context.Background(), peers, "ada", "grace", "hi", "")
	assert.Equal(t, "No provider selected; cannot message another bot.", out)

	out = messagePeer(context.Background(), peers, "ada", "ADA", "hi", "p1")
	assert.Equal(t, "Error: targetBotName must name another bot.", out)

	assert.Empty(t, peers.toAgent, "guarded sends must not reach the messenger")
}

func TestMessagePeer_DeliversAndReportsErrors(t *testing.T) {
	peers := &stubPeers{reply: "on my way"}
	out := messagePeer(context.Background(), peers, "ada", "grace", "need the report", "p1")
	assert.Equal(t, "on my way", out)
	assert.Equal(t, "ada", peers.fromAgent)
	assert.Equal(t, "grace", peers.toAgent)
	assert.Equal(t, "need the report", peers.message)
	assert.Equal(t, "p1", peers.providerID)

	out = messagePeer(context.Background(), &stubPeers{}, "ada", "grace", "hi", "p1")
	assert.Equal(t, "(no response)", out)

	failing := &stubPeers{err: errors.New("conversation store is down")}
	out = messagePeer(context.Background(), failing, "ada", "grace", "hi", "p1")
	assert.Equal(t, "Error: conversation store is down", out)
}

func TestPeerTools_MessageBotRoundTrip(t *testing.T) {
	peers := &stubPeers{reply: "hello back"}
	personas := stubPersonas{names: []string{"ada", "grace"}}

	tools := peerTools(peers, personas, "ada", "p1")
	require.Len(t, tools, 2)
	assert.Equal(t, "list_other_bots", tools[0].Name())
	assert.Equal(t, "message_bot", tools[1].Name())

	out, err := tools[0].Call(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Other bots: grace", out)

	out, err = tools[1].Call(context.Background(), `{"targetBotName":" grace ","message":" hello "}`)
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)
	assert.Equal(t, "grace", peers.toAgent, "target should be trimmed")
	assert.Equal(t, "hello", peers.message)

	// missing required arguments are rejected by schema validation
	_, err = tools[1].Call(context.Background(), `{"targetBotName":"grace"}`)
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}
