package chat

import (
	"strings"
	"sync"

	"github.com/coterie-ai/coterie/core"
)

// aggregator accumulates one turn's chunks from both upstream sources (the
// model token stream and the tool event side channel). Answer and reasoning
// text grow in independent accumulators; only answer and tool chunks enter
// the ordered list. Chunks from the same source arrive in source order;
// interleaving across the two sources is best-effort.
type aggregator struct {
	mu        sync.Mutex
	answer    strings.Builder
	reasoning strings.Builder
	ordered   []core.StreamChunk
}

func (a *aggregator) observe(c core.StreamChunk) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch c.Type {
	case core.ChunkAnswer:
		a.answer.WriteString(c.Content)
		a.ordered = append(a.ordered, c)
	case core.ChunkReasoning:
		a.reasoning.WriteString(c.Content)
	case core.ChunkTool:
		a.ordered = append(a.ordered, c)
	}
}

// result finalizes the turn: coalesces the ordered list, prepends the
// accumulated reasoning as a single leading chunk and assembles the
// ChatResult. Parts stays nil for a plain-text turn with no tool or
// reasoning activity, keeping the stored transcript flat.
func (a *aggregator) result(toolMessages []core.Message, pending []string) core.ChatResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	parts := coalesce(a.ordered)
	reasoning := a.reasoning.String()

	var combined []core.StreamChunk
	if reasoning != "" {
		combined = append(combined, core.StreamChunk{Type: core.ChunkReasoning, Content: reasoning})
	}
	combined = append(combined, parts...)
	if len(combined) == 1 && combined[0].Type == core.ChunkAnswer {
		combined = nil
	}

	return core.ChatResult{
		Response:                  a.answer.String(),
		ToolMessages:              toolMessages,
		PendingSubConversationIDs: pending,
		Parts:                     combined,
		Reasoning:                 reasoning,
	}
}

// coalesce merges runs of adjacent answer chunks into single chunks. Tool
// chunks are never merged and always break an answer run.
func coalesce(ordered []core.StreamChunk) []core.StreamChunk {
	if len(ordered) == 0 {
		return nil
	}
	var parts []core.StreamChunk
	var run strings.Builder
	for _, c := range ordered {
		if c.Type == core.ChunkAnswer {
			run.WriteString(c.Content)
			continue
		}
		if run.Len() > 0 {
			parts = append(parts, core.StreamChunk{Type: core.ChunkAnswer, Content: run.String()})
			run.Reset()
		}
		parts = append(parts, c)
	}
	if run.Len() > 0 {
		parts = append(parts, core.StreamChunk{Type: core.ChunkAnswer, Content: run.String()})
	}
	return parts
}
