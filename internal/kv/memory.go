package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	notifier
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	return append(json.RawMessage(nil), value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value json.RawMessage) error {
	compact, err := normalize(value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	m.mu.Lock()
	old, existed := m.values[key]
	if existed && bytes.Equal(old, compact) {
		m.mu.Unlock()
		return nil
	}
	m.values[key] = compact
	m.enqueue(Change{Key: key, OldValue: old, NewValue: append(json.RawMessage(nil), compact...)})
	m.mu.Unlock()
	m.drain()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	old, existed := m.values[key]
	if !existed {
		m.mu.Unlock()
		return nil
	}
	delete(m.values, key)
	m.enqueue(Change{Key: key, OldValue: old})
	m.mu.Unlock()
	m.drain()
	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
