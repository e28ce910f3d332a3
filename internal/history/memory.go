package history

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	stacks map[string][]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stacks: make(map[string][]Entry)}
}

func (m *MemoryStore) Push(_ context.Context, calendarID string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := append(m.stacks[calendarID], e)
	if len(stack) > Capacity {
		stack = stack[len(stack)-Capacity:]
	}
	m.stacks[calendarID] = stack
	return nil
}

func (m *MemoryStore) Pop(_ context.Context, calendarID string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.stacks[calendarID]
	if len(stack) == 0 {
		return Entry{}, false, nil
	}
	e := stack[len(stack)-1]
	m.stacks[calendarID] = stack[:len(stack)-1]
	return e, true, nil
}

func (m *MemoryStore) Len(_ context.Context, calendarID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stacks[calendarID]), nil
}

func (m *MemoryStore) Clear(_ context.Context, calendarID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stacks, calendarID)
	return nil
}
