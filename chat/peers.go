package chat

import (
	"context"
	"strings"

	"github.com/coterie-ai/coterie/tool"
)

// peerTools builds the bot-to-bot messaging tools offered to a named
// agent's turn: discovery of the other configured agents and synchronous
// messaging over the pair's direct conversation.
func peerTools(peers PeerMessenger, personas Personas, agentName, providerID string) []tool.Tool {
	listOtherBots := tool.NewFunctionTool(
		"list_other_bots",
		"List other bots you can message. Returns bot names (excluding yourself).",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(_ context.Context, _ map[string]any) (string, error) {
			return listPeers(personas, agentName), nil
		},
	)

	messageBot := tool.NewFunctionTool(
		"message_bot",
		"Send a message to another bot and get its reply. Use when you need to ask another bot "+
			"for information or to perform a task. The other bot will respond in the same provider context.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"targetBotName": map[string]any{
					"type":        "string",
					"description": "Name of the bot to message",
				},
				"message": map[string]any{
					"type":        "string",
					"description": "The message or question to send to the other bot",
				},
			},
			"required": []any{"targetBotName", "message"},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			target, _ := args["targetBotName"].(string)
			message, _ := args["message"].(string)
			return messagePeer(ctx, peers, agentName, strings.TrimSpace(target),
				strings.TrimSpace(message), providerID), nil
		},
	)

	return []tool.Tool{listOtherBots, messageBot}
}

func listPeers(personas Personas, agentName string) string {
	var others []string
	for _, name := range personas.Names() {
		if !strings.EqualFold(name, agentName) {
			others = append(others, name)
		}
	}
	if len(others) == 0 {
		return "No bots found."
	}
	return "Other bots: " + strings.Join(others, ", ")
}

// messagePeer runs the guarded send. Failures are reported to the model as
// tool output, never as turn-aborting errors.
func messagePeer(ctx context.Context, peers PeerMessenger, agentName, target, message,
	providerID string) string {

	if !namedAgent(agentName) {
		return "Bot-to-bot messaging is only available for named bots."
	}
	if providerID == "" {
		return "No provider selected; cannot message another bot."
	}
	if target == "" || strings.EqualFold(target, agentName) {
		return "Error: targetBotName must name another bot."
	}
	reply, err := peers.SendMessageBotToBot(ctx, agentName, target, message, providerID)
	if err != nil {
		return "Error: " + err.Error()
	}
	if reply == "" {
		return "(no response)"
	}
	return reply
}
