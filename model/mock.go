package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/coterie-ai/coterie/core"
)

// MockChunk is one scripted streaming fragment. Metadata mirrors provider
// response metadata (e.g. a "thinking" key marks reasoning text).
type MockChunk struct {
	Text     string
	Metadata map[string]string
}

// MockTurn scripts one generation step: streamed chunks, the final answer
// text, optional tool calls attached to the final response, or a terminal
// error.
//
// On a streaming request the consumer takes the answer from the chunks
// and ignores final text once any answer chunk was streamed; a turn that
// sets both Chunks and Text should have Text restate the streamed answer.
type MockTurn struct {
	Chunks    []MockChunk
	Text      string
	ToolCalls []core.FunctionCall
	Err       error
}

// MockModel is a lightweight in-memory Model useful for tests. Steps are
// consumed FIFO from a scripted queue; when the queue is empty an optional
// RespondFunc is consulted, falling back to a deterministic echo.
type MockModel struct {
	info Info

	mu       sync.Mutex
	turns    []MockTurn
	requests []Request

	// RespondFunc, when set, produces a turn for requests not covered by
	// the scripted queue. Useful when concurrent callers share one mock.
	RespondFunc func(req Request) MockTurn
}

// NewMockModel constructs a MockModel with tool and streaming support
// enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock", SupportsTools: true, SupportsStream: true},
	}
}

// Enqueue appends scripted turns consumed in order by Generate.
func (m *MockModel) Enqueue(turns ...MockTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turns...)
}

// Requests returns a copy of all requests seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockModel) nextTurn(req Request) MockTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.turns) > 0 {
		t := m.turns[0]
		m.turns = m.turns[1:]
		return t
	}
	if m.RespondFunc != nil {
		return m.RespondFunc(req)
	}
	var last string
	if len(req.Contents) > 0 {
		last = req.Contents[len(req.Contents)-1].Text()
	}
	return MockTurn{Text: fmt.Sprintf("Mock response to: %s", last)}
}

// Generate implements Model; emits scripted chunks then the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	turn := m.nextTurn(req)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if turn.Err != nil {
			errCh <- turn.Err
			return
		}
		if req.Stream {
			for _, ck := range turn.Chunks {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial:  true,
					Content:  core.TextContent(core.RoleAssistant, ck.Text),
					Metadata: ck.Metadata,
				}:
				}
			}
		}
		parts := make([]core.Part, 0, len(turn.ToolCalls)+1)
		if turn.Text != "" {
			parts = append(parts, core.TextPart{Text: turn.Text})
		}
		finish := "stop"
		for _, fc := range turn.ToolCalls {
			parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
			finish = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{
			Partial:      false,
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: finish,
		}:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
