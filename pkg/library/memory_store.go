package library

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps entries in process memory. It backs the "none" library
// configuration and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	closed  bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Save(_ context.Context, e Entry) (SaveResult, error) {
	key, err := entryKey(e.Name)
	if err != nil {
		return 0, err
	}
	e.Key = key
	e.Source = slices.Clone(e.Source)
	if e.Fingerprint == "" {
		e.Fingerprint = Fingerprint(e.Source)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	old, ok := m.entries[key]
	if ok && old.Fingerprint == e.Fingerprint {
		return Unchanged, nil
	}
	m.entries[key] = e
	if ok {
		return Updated, nil
	}
	return Created, nil
}

func (m *MemoryStore) Load(_ context.Context, name string) (Entry, error) {
	key, err := entryKey(name)
	if err != nil {
		return Entry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Entry{}, ErrClosed
	}
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Source = slices.Clone(e.Source)
	return e, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		e.Source = nil
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	key, err := entryKey(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.entries[key]; !ok {
		return ErrNotFound
	}
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.entries = nil
	m.mu.Unlock()
	return nil
}
