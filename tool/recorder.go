package tool

import (
	"context"
	"sync"

	"github.com/coterie-ai/coterie/core"
)

// Transcript collects the tool-role log entries of one model turn. It is
// shared by every recorded tool of the turn and safe for concurrent
// appends (parallel tool execution).
type Transcript struct {
	mu       sync.Mutex
	messages []core.Message
}

// NewTranscript creates an empty per-turn transcript.
func NewTranscript() *Transcript { return &Transcript{} }

// Append adds a tool-role message to the transcript.
func (t *Transcript) Append(m core.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m)
}

// Messages returns a copy of the recorded entries in completion order.
func (t *Transcript) Messages() []core.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// recordedTool wraps a tool so that every completed invocation is appended
// to the shared transcript and, when a live sink is present, emitted as a
// tool StreamChunk while the model is still producing output.
//
// The sink is a bounded channel written from the tool-execution goroutine;
// a stalled consumer applies backpressure here rather than growing memory.
// Errors from the wrapped tool propagate uncaught; the transcript entry is
// only ever written for completed calls.
type recordedTool struct {
	Tool
	transcript *Transcript
	sink       chan<- core.StreamChunk
}

// Record wraps t so its invocations are logged to the transcript and the
// optional live sink (nil disables live events).
func Record(t Tool, transcript *Transcript, sink chan<- core.StreamChunk) Tool {
	return &recordedTool{Tool: t, transcript: transcript, sink: sink}
}

func (r *recordedTool) Call(ctx context.Context, input string) (string, error) {
	output, err := r.Tool.Call(ctx, input)
	if err != nil {
		return "", err
	}
	entry := "[" + r.Tool.Name() + "]\nInput: " + input + "\nOutput: " + output
	r.transcript.Append(core.NewMessage(core.RoleTool, entry))
	if r.sink != nil {
		select {
		case r.sink <- core.StreamChunk{Type: core.ChunkTool, Content: entry}:
		case <-ctx.Done():
		}
	}
	return output, nil
}
