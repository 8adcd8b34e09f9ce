// Package delegation implements the sub-agent orchestrator: the per-turn
// tools a model uses to spawn or resume sub-agent conversations, and the
// service that runs pending sub-agents asynchronously and wakes parent
// agents with a status digest when their children complete.
package delegation

import (
	"context"
	"fmt"
	"sync"

	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/tool"
)

// Tools is the ephemeral per-turn delegation session. It owns the list of
// sub-conversation ids created or resumed during one model turn; the turn
// runner surrenders that list into the ChatResult when the turn ends.
type Tools struct {
	store       core.Store
	parentID    string
	providerID  string
	agentName   string
	parentDepth int
	maxDepth    int

	mu      sync.Mutex
	pending []string
}

// NewTools creates the delegation session for one turn of the given parent
// conversation. maxDepth bounds the delegation tree; 0 disables the guard.
func NewTools(store core.Store, parentID, providerID, agentName string, parentDepth, maxDepth int) *Tools {
	return &Tools{
		store:       store,
		parentID:    parentID,
		providerID:  providerID,
		agentName:   agentName,
		parentDepth: parentDepth,
		maxDepth:    maxDepth,
	}
}

// PendingSubConversationIDs returns a copy of the ids registered this turn.
func (d *Tools) PendingSubConversationIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.pending))
	copy(out, d.pending)
	return out
}

// All returns the delegation tools exposed to the model for this turn.
func (d *Tools) All() []tool.Tool {
	delegate := tool.NewFunctionTool(
		"delegate_to_sub_agent",
		"Delegate a subproblem to a sub-agent. Creates a sub-conversation and sends the instruction. "+
			"The sub-agent will process it asynchronously after you finish your current response.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{
					"type":        "string",
					"description": "Short descriptive name for the sub-task",
				},
				"instruction": map[string]any{
					"type":        "string",
					"description": "Clear, self-contained instruction for the sub-agent to solve",
				},
			},
			"required": []any{"name", "instruction"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			name, _ := args["name"].(string)
			instruction, _ := args["instruction"].(string)
			return d.delegate(name, instruction), nil
		},
	)

	addWork := tool.NewFunctionTool(
		"add_work_to_sub_agent",
		"Send additional instructions to an existing sub-agent whose work needs revision. "+
			"Use this after reviewing a sub-agent's completed work in a [Delegation Status Update].",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"subConversationId": map[string]any{
					"type":        "string",
					"description": "The sub-conversation ID from the delegation status update",
				},
				"instruction": map[string]any{
					"type":        "string",
					"description": "Additional instructions or revision requests for the sub-agent",
				},
			},
			"required": []any{"subConversationId", "instruction"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			subID, _ := args["subConversationId"].(string)
			instruction, _ := args["instruction"].(string)
			return d.addWork(subID, instruction), nil
		},
	)

	return []tool.Tool{delegate, addWork}
}

// delegate creates a pending child conversation seeded with the
// instruction. The depth guard rejects delegation past the configured
// maximum with a tool-visible error string rather than creating the child.
func (d *Tools) delegate(name, instruction string) string {
	depth := d.parentDepth + 1
	if d.maxDepth > 0 && depth > d.maxDepth {
		return fmt.Sprintf("Error: delegation depth limit (%d) reached. Handle this task yourself "+
			"instead of delegating further.", d.maxDepth)
	}

	sub := core.NewConversation(name, d.providerID, d.agentName)
	sub.ParentConversationID = d.parentID
	sub.Depth = depth
	sub.Append(core.NewMessage(core.RoleUser, instruction))
	if err := d.store.Save(sub); err != nil {
		return "Error: failed to create sub-conversation: " + err.Error()
	}

	d.mu.Lock()
	d.pending = append(d.pending, sub.ID)
	d.mu.Unlock()

	return fmt.Sprintf("Delegated to sub-agent '%s' (%s). It will be processed after you finish your response.",
		name, sub.ID)
}

// addWork appends an instruction to an existing child of this conversation
// and re-registers it as pending.
func (d *Tools) addWork(subConversationID, instruction string) string {
	sub, err := d.store.Get(subConversationID)
	if err != nil {
		return "Error: Sub-conversation not found: " + subConversationID
	}
	if sub.ParentConversationID != d.parentID {
		return "Error: Sub-conversation does not belong to the current conversation."
	}
	sub.Append(core.NewMessage(core.RoleUser, instruction))
	if err := d.store.Save(sub); err != nil {
		return "Error: failed to update sub-conversation: " + err.Error()
	}

	d.mu.Lock()
	d.pending = append(d.pending, subConversationID)
	d.mu.Unlock()

	return fmt.Sprintf("Additional work sent to sub-agent '%s' (%s). It will be processed after you finish your response.",
		sub.Name, subConversationID)
}
