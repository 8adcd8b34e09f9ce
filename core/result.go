package core

import (
	"encoding/json"
	"strings"
)

// ChatResult is the outcome of one model turn.
type ChatResult struct {
	// Response is the final answer text as a flat string.
	Response string
	// ToolMessages holds the tool-role transcript entries recorded during
	// the turn, in completion order.
	ToolMessages []Message
	// PendingSubConversationIDs lists sub-conversations created or resumed
	// by the delegate tools during this turn. Empty unless delegation
	// occurred.
	PendingSubConversationIDs []string
	// Parts is the coalesced ordered chunk sequence, nil when the turn had
	// no tool or reasoning activity.
	Parts []StreamChunk
	// Reasoning is the accumulated private reasoning text, empty if none.
	Reasoning string
}

// partsEnvelope is the persisted JSON shape of a structured assistant turn.
type partsEnvelope struct {
	Parts []StreamChunk `json:"parts"`
}

// AssistantContent renders the turn for transcript storage: the structured
// parts envelope when interleaving was observed, otherwise the flat answer
// text.
func (r ChatResult) AssistantContent() string {
	if len(r.Parts) > 0 {
		if b, err := json.Marshal(partsEnvelope{Parts: r.Parts}); err == nil {
			return string(b)
		}
	}
	return r.Response
}

// FlattenParts reduces stored assistant content to its plain-text rendering:
// reasoning parts are stripped, answer parts concatenated, tool parts kept
// as marked blocks. Content that is not a parts envelope is returned as is.
func FlattenParts(content string) string {
	if !strings.HasPrefix(strings.TrimSpace(content), `{"parts":`) {
		return content
	}
	var env partsEnvelope
	if err := json.Unmarshal([]byte(content), &env); err != nil || env.Parts == nil {
		return content
	}
	var sb strings.Builder
	for _, p := range env.Parts {
		switch p.Type {
		case ChunkReasoning:
			// private, never echoed back to the model
		case ChunkAnswer:
			sb.WriteString(p.Content)
		default:
			sb.WriteString("\n[Tool]\n")
			sb.WriteString(p.Content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
