package chat

import (
	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/model"
)

// Metadata keys under which providers surface private reasoning text.
var reasoningKeys = []string{"thinking", "reasoningContent", "reasoning_content", "reasoning"}

// classify maps one model response onto a stream chunk. If any known
// reasoning metadata key holds non-empty text, that text is the chunk and
// it is reasoning. A "signature" metadata key marks the response text
// itself as reasoning (signed thinking deltas). Everything else is answer
// text.
func classify(resp model.Response) core.StreamChunk {
	if md := resp.Metadata; md != nil {
		for _, key := range reasoningKeys {
			if v := md[key]; v != "" {
				return core.StreamChunk{Type: core.ChunkReasoning, Content: v}
			}
		}
		if _, ok := md["signature"]; ok {
			if text := resp.Content.Text(); text != "" {
				return core.StreamChunk{Type: core.ChunkReasoning, Content: text}
			}
		}
	}
	return core.StreamChunk{Type: core.ChunkAnswer, Content: resp.Content.Text()}
}
