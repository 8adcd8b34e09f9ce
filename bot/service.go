package bot

import (
	"fmt"
	"strings"

	"github.com/coterie-ai/coterie/core"
)

// Service exposes persona operations to the chat and conversation layers.
// All read paths degrade to empty results for the default identity.
type Service struct {
	store Store
}

// NewService creates a persona service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the configured persona definitions.
func (s *Service) List() ([]Definition, error) {
	names, err := s.store.Names()
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, len(names))
	for _, n := range names {
		defs = append(defs, Definition{Name: n})
	}
	return defs, nil
}

// Names returns the configured persona names, empty when the store fails.
func (s *Service) Names() []string {
	names, err := s.store.Names()
	if err != nil {
		return nil
	}
	return names
}

// Create registers a new persona with the given soul description.
func (s *Service) Create(name, soul string) (Definition, error) {
	name = strings.TrimSpace(name)
	soul = strings.TrimSpace(soul)
	if name == "" {
		return Definition{}, fmt.Errorf("persona name is required")
	}
	if strings.EqualFold(name, "default") {
		return Definition{}, fmt.Errorf("persona name 'default' is reserved")
	}
	if soul == "" {
		return Definition{}, fmt.Errorf("persona soul description is required")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return Definition{}, fmt.Errorf("persona name contains invalid characters")
	}
	if err := s.store.Create(name, soul); err != nil {
		return Definition{}, err
	}
	return Definition{Name: name}, nil
}

// LoadSoul returns the persona description, or "" for the default identity
// and unknown personas.
func (s *Service) LoadSoul(name string) string {
	if !Named(name) {
		return ""
	}
	soul, err := s.store.LoadSoul(name)
	if err != nil {
		return ""
	}
	return soul
}

// LoadPersonalMemory returns the full personal memory of a named persona.
func (s *Service) LoadPersonalMemory(name string) []PersonalMemoryEntry {
	if !Named(name) || !s.store.Exists(name) {
		return nil
	}
	entries, err := s.store.LoadPersonalMemory(name)
	if err != nil {
		return nil
	}
	return entries
}

// LoadPersonalMemoryTrimmed returns the newest personal memory entries
// fitting the character budget.
func (s *Service) LoadPersonalMemoryTrimmed(name string, maxChars int) []PersonalMemoryEntry {
	if maxChars <= 0 {
		return nil
	}
	entries := s.LoadPersonalMemory(name)
	if len(entries) == 0 {
		return nil
	}
	return TrimPersonalMemory(entries, maxChars)
}

// AppendTurn records one completed turn (the user input, any tool log
// entries and the assistant output) into a named persona's memory. A
// default or unknown identity is a no-op.
func (s *Service) AppendTurn(name, userContent string, toolMessages []core.Message, assistantContent string) {
	if !Named(name) || !s.store.Exists(name) {
		return
	}
	entries := make([]PersonalMemoryEntry, 0, len(toolMessages)+2)
	entries = append(entries, PersonalMemoryEntry{Role: core.RoleUser, Content: userContent})
	for _, m := range toolMessages {
		entries = append(entries, PersonalMemoryEntry{Role: core.RoleTool, Content: m.Content})
	}
	entries = append(entries, PersonalMemoryEntry{Role: core.RoleAssistant, Content: assistantContent})
	_ = s.store.AppendPersonalMemory(name, entries)
}
