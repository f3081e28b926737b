package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps state for the life of the process only. It stands in
// when the state database cannot be opened.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]WindowState
	words  map[string]string
}

var (
	_ StateStore = (*MemoryStore)(nil)
	_ Dictionary = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]WindowState),
		words:  make(map[string]string),
	}
}

func (m *MemoryStore) LoadWindowState(_ context.Context, appID string) (WindowState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[appID]
	return s, ok, nil
}

func (m *MemoryStore) SaveWindowState(_ context.Context, appID string, state WindowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[appID] = state
	return nil
}

func (m *MemoryStore) AddWord(_ context.Context, word string) error {
	word = normaliseWord(word)
	if word == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.words[strings.ToLower(word)]; !ok {
		m.words[strings.ToLower(word)] = word
	}
	return nil
}

func (m *MemoryStore) HasWord(_ context.Context, word string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.words[strings.ToLower(normaliseWord(word))]
	return ok, nil
}

func (m *MemoryStore) Words(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.words))
	for _, w := range m.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out, nil
}
