// Package tool implements the function-calling subsystem of the engine:
// named, schema-described tools callable with an opaque input string
// (typically JSON), source-qualified naming for externally provided tools,
// and the invocation recorder that turns every completed call into a
// transcript entry and a live stream event.
package tool

import (
	"context"
	"fmt"
)

// Tool is a callable capability exposed to the model.
//
// Input and output are opaque strings; the model supplies arguments as a
// serialized payload matching Parameters. Implementations should report
// their own failures in the returned string where possible; a returned
// error is treated as an unexpected failure and aborts the whole turn.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case
	// recommended). For tools from a named external source, the exposed
	// name is the sanitized qualified form.
	Name() string

	// Description is shown to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// Call executes the tool with the raw input string.
	Call(ctx context.Context, input string) (string, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
