package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"cuebridge/internal/bus"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("key not found")

// Change describes one effective write. A nil OldValue means the key was
// absent; a nil NewValue means it was removed.
type Change struct {
	Key      string          `json:"key"`
	OldValue json.RawMessage `json:"oldValue,omitempty"`
	NewValue json.RawMessage `json:"newValue,omitempty"`
}

// Removed reports whether the change deleted the key.
func (c Change) Removed() bool {
	return c.NewValue == nil
}

// Store is a JSON key-value store with change notification.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Subscribe registers fn for every later change and returns a function
	// that removes it.
	Subscribe(fn func(Change)) func()
}

// notifier serializes change delivery across reentrant writes.
type notifier struct {
	topic    bus.Topic[Change]
	mu       sync.Mutex
	queue    []Change
	draining bool
}

func (n *notifier) Subscribe(fn func(Change)) func() {
	return n.topic.Subscribe(fn)
}

// enqueue must be called while the caller still holds its data lock so queue
// order matches write order.
func (n *notifier) enqueue(c Change) {
	n.mu.Lock()
	n.queue = append(n.queue, c)
	n.mu.Unlock()
}

// drain delivers queued changes unless another frame on the stack already is.
func (n *notifier) drain() {
	n.mu.Lock()
	if n.draining {
		n.mu.Unlock()
		return
	}
	n.draining = true
	for len(n.queue) > 0 {
		next := n.queue[0]
		n.queue = n.queue[1:]
		n.mu.Unlock()
		n.topic.Publish(next)
		n.mu.Lock()
	}
	n.draining = false
	n.mu.Unlock()
}

// normalize validates and compacts a JSON value.
func normalize(value json.RawMessage) (json.RawMessage, error) {
	if len(bytes.TrimSpace(value)) == 0 {
		return nil, errors.New("empty value")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
