package cache

import (
	"context"
	"sync"
)

// Memory is an unbounded in-process cache. Entries never expire.
type Memory struct {
	mu      sync.RWMutex
	answers map[string]string
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{answers: make(map[string]string)}
}

func (m *Memory) Lookup(_ context.Context, question string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	answer, ok := m.answers[question]
	return answer, ok, nil
}

func (m *Memory) Store(_ context.Context, question, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.answers[question] = answer
	return nil
}

// Len returns the number of cached questions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.answers)
}
