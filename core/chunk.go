package core

// Stream chunk types.
const (
	ChunkAnswer    = "answer"
	ChunkReasoning = "reasoning"
	ChunkTool      = "tool"
)

// StreamChunk is a typed fragment of a turn's output: user-visible answer
// text, private reasoning text, or a completed tool-invocation log entry.
// An ordered chunk list losslessly preserves the interleaving observed
// during the turn.
type StreamChunk struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
