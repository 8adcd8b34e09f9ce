package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/tool"
)

// historyTools builds the per-turn conversation retrieval tools: the model
// can page back through messages that fell outside the trimmed context, and
// named agents can page through their personal memory. Both return their
// failure text as the tool output rather than erroring the turn.
func historyTools(filtered []core.Message, historyLimit int, agentName string, personas Personas) []tool.Tool {
	older := tool.NewFunctionTool(
		"retrieve_older_messages",
		"Retrieve older conversation messages by index range. Provide startIndexInclusive; optionally "+
			"endIndexExclusive. If endIndexExclusive is omitted, returns all messages from startIndex to the end. "+
			"Result is capped by context window. Returns: startIndex, actualEndIndex (exclusive), and the message list.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"startIndexInclusive": map[string]any{
					"type":        "integer",
					"description": "Start index (inclusive), 0-based",
				},
				"endIndexExclusive": map[string]any{
					"type":        "integer",
					"description": "End index (exclusive). Omit to include all from startIndex to end",
				},
			},
			"required": []any{"startIndexInclusive"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			return retrieveOlderMessages(filtered, historyLimit, args)
		},
	)

	memory := tool.NewFunctionTool(
		"retrieve_older_personal_memory",
		"Retrieve older personal memory entries by index range (named agents only). Provide startIndexInclusive; "+
			"optionally endIndexExclusive. If endIndexExclusive is omitted, returns all entries from startIndex to "+
			"the end. Returns: startIndex, actualEndIndex (exclusive), and the entry list.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"startIndexInclusive": map[string]any{
					"type":        "integer",
					"description": "Start index (inclusive), 0-based",
				},
				"endIndexExclusive": map[string]any{
					"type":        "integer",
					"description": "End index (exclusive). Omit to include all from startIndex to end",
				},
			},
			"required": []any{"startIndexInclusive"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			return retrieveOlderPersonalMemory(agentName, personas, args)
		},
	)

	return []tool.Tool{older, memory}
}

func retrieveOlderMessages(messages []core.Message, historyLimit int, args map[string]any) (string, error) {
	if len(messages) == 0 {
		return "No conversation context available.", nil
	}
	size := len(messages)
	start, end, errText := indexRange(args, size, "Conversation", "messages")
	if errText != "" {
		return errText, nil
	}

	actualEnd := start
	totalChars := 0
	for i := start; i < end; i++ {
		display := answerOnly(messages[i])
		if historyLimit > 0 && totalChars+len(display) > historyLimit {
			break
		}
		totalChars += len(display)
		actualEnd = i + 1
	}

	var lines []string
	for i := start; i < actualEnd; i++ {
		lines = append(lines, fmt.Sprintf("[%d] %s: %s", i, messages[i].Role, answerOnly(messages[i])))
	}
	return fmt.Sprintf("startIndex: %d, actualEndIndex: %d, messages:\n%s",
		start, actualEnd, strings.Join(lines, "\n")), nil
}

func retrieveOlderPersonalMemory(agentName string, personas Personas, args map[string]any) (string, error) {
	if agentName == "" || strings.EqualFold(agentName, "default") || personas == nil {
		return "Personal memory is only available for named agents.", nil
	}
	entries := personas.LoadPersonalMemory(agentName)
	if len(entries) == 0 {
		return "No personal memory for this agent.", nil
	}
	size := len(entries)
	start, end, errText := indexRange(args, size, "Personal memory", "entries")
	if errText != "" {
		return errText, nil
	}

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, fmt.Sprintf("[%d] %s: %s", i, entries[i].Role, entries[i].Content))
	}
	return fmt.Sprintf("startIndex: %d, actualEndIndex: %d, entries:\n%s",
		start, end, strings.Join(lines, "\n")), nil
}

// indexRange decodes and bounds-checks the shared start/end arguments.
// A non-empty third return value is the tool-visible error text.
func indexRange(args map[string]any, size int, subject, noun string) (int, int, string) {
	start := intArg(args, "startIndexInclusive", -1)
	if start < 0 || start >= size {
		return 0, 0, fmt.Sprintf("Invalid startIndexInclusive: %d. %s has %d %s (indices 0 to %d).",
			start, subject, size, noun, size-1)
	}
	end := intArg(args, "endIndexExclusive", size)
	if end > size {
		end = size
	}
	if end <= start {
		return 0, 0, "Invalid range: endIndexExclusive must be greater than startIndexInclusive."
	}
	return start, end, ""
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// answerOnly renders the model-visible text of a stored message: structured
// assistant content is reduced to its answer parts, everything else passes
// through unchanged.
func answerOnly(m core.Message) string {
	if m.Role != core.RoleAssistant || !strings.HasPrefix(strings.TrimSpace(m.Content), `{"parts":`) {
		return m.Content
	}
	var envelope struct {
		Parts []core.StreamChunk `json:"parts"`
	}
	if err := json.Unmarshal([]byte(m.Content), &envelope); err != nil {
		return m.Content
	}
	var sb strings.Builder
	for _, p := range envelope.Parts {
		if p.Type == core.ChunkAnswer {
			sb.WriteString(p.Content)
		}
	}
	return sb.String()
}
