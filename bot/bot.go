// Package bot manages named agent personas: the soul (persona description)
// and the cross-conversation personal memory that a named agent carries
// between turns. The reserved identity "default" has neither.
package bot

import (
	"strings"

	"github.com/coterie-ai/coterie/core"
)

// PersonalMemoryEntry is one remembered line of a past interaction.
type PersonalMemoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Definition identifies a configured persona.
type Definition struct {
	Name string `json:"name"`
}

// Store persists personas and their personal memory. Implementations must
// tolerate concurrent appends to different personas.
type Store interface {
	Names() ([]string, error)
	Exists(name string) bool
	Create(name, soul string) error
	LoadSoul(name string) (string, error)
	LoadPersonalMemory(name string) ([]PersonalMemoryEntry, error)
	AppendPersonalMemory(name string, entries []PersonalMemoryEntry) error
}

// Named reports whether the identity refers to an actual persona rather
// than the reserved default.
func Named(name string) bool {
	return name != "" && !strings.EqualFold(name, "default")
}

// TrimPersonalMemory bounds entries to a character budget, tail-anchored.
func TrimPersonalMemory(entries []PersonalMemoryEntry, budget int) []PersonalMemoryEntry {
	return core.TrimToBudget(entries, budget, func(e PersonalMemoryEntry) string { return e.Content })
}
