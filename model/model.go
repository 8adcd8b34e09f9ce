package model

import (
	"context"

	"github.com/coterie-ai/coterie/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the prompt
// builder: leading system instructions, ordered contents (system context,
// history, the current message last) and the tool catalog for the turn.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
// Metadata carries vendor response metadata; the chat layer inspects it to
// classify a chunk as private reasoning rather than answer text.
type Response struct {
	ID           string            `json:"id"`
	Partial      bool              `json:"partial"`
	Content      core.Content      `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	FinishReason string            `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage       `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name           string `json:"name"`
	Provider       string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools  bool   `json:"supports_tools"`
	SupportsStream bool   `json:"supports_stream"`
}

// Model is the minimal interface required to drive one generation step.
// Generate returns a channel of partial/final responses plus an error
// channel carrying at most one terminal error; both are closed when the
// step completes. Implementations that cannot stream emit a single final
// Response regardless of Request.Stream.
//
// When a step streams, answer text is delivered through the partial
// responses; consumers read text from the final response only when no
// answer partials arrived. A streaming implementation may therefore
// repeat (or omit) the full text on the final response without the
// consumer seeing it twice.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}
