package chat

import (
	"fmt"

	"github.com/coterie-ai/coterie/bot"
	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/model"
)

// buildPrompt assembles the normalized model request for one turn: system
// instructions, the persona soul, the trimmed personal memory block, a
// context-index notice, the trimmed conversation history and finally the
// current message. Tool-role messages never reach the model as history;
// they live in the stored transcript only. The last message of the
// untrimmed history is always sent as the current turn and is excluded
// from the trimming computation.
func buildPrompt(messages []core.Message, agentName string, historyBudget, memoryBudget int,
	systemInstructions string, personas Personas) model.Request {

	var contents []core.Content

	if personas != nil {
		if soul := personas.LoadSoul(agentName); soul != "" {
			contents = append(contents, core.TextContent(core.RoleSystem, soul))
		}
		if memoryBudget > 0 {
			entries := personas.LoadPersonalMemoryTrimmed(agentName, memoryBudget)
			if len(entries) > 0 {
				contents = append(contents, core.TextContent(core.RoleSystem, fmt.Sprintf(
					"Personal memory (recent interactions across conversations), limited to %d characters. "+
						"Use retrieve_older_messages for conversation history.", memoryBudget)))
				for _, e := range entries {
					contents = append(contents, memoryContent(e))
				}
			}
		}
	}

	filtered := core.WithoutRole(messages, core.RoleTool)
	if len(filtered) == 0 {
		return model.Request{Instructions: systemInstructions, Contents: contents}
	}

	history := filtered[:len(filtered)-1]
	if len(history) > 0 {
		trimmed := core.TrimMessages(history, historyBudget)
		firstInContext := len(history) - len(trimmed)
		contents = append(contents, core.TextContent(core.RoleSystem, fmt.Sprintf(
			"This conversation has %d messages. Your current context includes messages from index %d "+
				"(inclusive) to the latest. Use retrieve_older_messages tool to fetch earlier messages if needed.",
			len(filtered), firstInContext)))
		for _, m := range trimmed {
			contents = append(contents, messageContent(m))
		}
	}

	contents = append(contents, messageContent(filtered[len(filtered)-1]))

	return model.Request{Instructions: systemInstructions, Contents: contents}
}

// messageContent converts a stored message into model content. Structured
// assistant content is flattened back to plain text before it is replayed
// to the model.
func messageContent(m core.Message) core.Content {
	switch m.Role {
	case core.RoleSystem:
		return core.TextContent(core.RoleSystem, m.Content)
	case core.RoleAssistant:
		return core.TextContent(core.RoleAssistant, core.FlattenParts(m.Content))
	default:
		return core.TextContent(core.RoleUser, m.Content)
	}
}

func memoryContent(e bot.PersonalMemoryEntry) core.Content {
	switch e.Role {
	case core.RoleUser:
		return core.TextContent(core.RoleUser, e.Content)
	case core.RoleAssistant:
		return core.TextContent(core.RoleAssistant, e.Content)
	default:
		return core.TextContent(core.RoleSystem, "[Tool] "+e.Content)
	}
}
