package bot

import (
	"fmt"
	"sort"
	"sync"
)

type personaRecord struct {
	soul   string
	memory []PersonalMemoryEntry
}

// InMemoryStore is a thread-safe, process-local persona store. Suitable for
// tests and single-node deployments without durability requirements.
type InMemoryStore struct {
	mu       sync.RWMutex
	personas map[string]*personaRecord
}

// NewInMemoryStore creates an empty in-memory persona store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{personas: map[string]*personaRecord{}}
}

// Names implements Store.
func (s *InMemoryStore) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.personas))
	for n := range s.personas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Exists implements Store.
func (s *InMemoryStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.personas[name]
	return ok
}

// Create implements Store.
func (s *InMemoryStore) Create(name, soul string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[name]; ok {
		return fmt.Errorf("persona already exists: %s", name)
	}
	s.personas[name] = &personaRecord{soul: soul}
	return nil
}

// LoadSoul implements Store.
func (s *InMemoryStore) LoadSoul(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.personas[name]
	if !ok {
		return "", fmt.Errorf("persona not found: %s", name)
	}
	return rec.soul, nil
}

// LoadPersonalMemory implements Store.
func (s *InMemoryStore) LoadPersonalMemory(name string) ([]PersonalMemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.personas[name]
	if !ok {
		return nil, fmt.Errorf("persona not found: %s", name)
	}
	out := make([]PersonalMemoryEntry, len(rec.memory))
	copy(out, rec.memory)
	return out, nil
}

// AppendPersonalMemory implements Store.
func (s *InMemoryStore) AppendPersonalMemory(name string, entries []PersonalMemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.personas[name]
	if !ok {
		return fmt.Errorf("persona not found: %s", name)
	}
	rec.memory = append(rec.memory, entries...)
	return nil
}
