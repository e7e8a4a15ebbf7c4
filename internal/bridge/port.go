package bridge

import (
	"context"
	"errors"
	"sync"

	"cuebridge/internal/bus"
)

// ErrPortClosed is returned when sending on a closed port.
var ErrPortClosed = errors.New("port closed")

// Port is one context's connection to a Coordinator.
type Port interface {
	// TabID returns the id the Coordinator assigned to this context.
	TabID() TabID
	// Send hands msg to the Coordinator. Only bridge and forward messages
	// are accepted.
	Send(ctx context.Context, msg Message) error
	// Subscribe registers fn for messages delivered to this context.
	// Messages that arrived before the first subscriber are replayed to it.
	Subscribe(fn func(Message)) func()
	Close() error
}

// Inbox fans delivered messages out to subscribers and holds them until the
// first subscriber arrives. Port implementations embed it.
type Inbox struct {
	topic bus.Topic[Message]

	mu      sync.Mutex
	backlog []Message
	started bool
}

// Deliver publishes msg, or queues it while nobody has subscribed yet.
func (in *Inbox) Deliver(msg Message) {
	in.mu.Lock()
	if !in.started {
		in.backlog = append(in.backlog, msg)
		in.mu.Unlock()
		return
	}
	in.mu.Unlock()
	in.topic.Publish(msg)
}

func (in *Inbox) Subscribe(fn func(Message)) func() {
	unsubscribe := in.topic.Subscribe(fn)
	in.mu.Lock()
	backlog := in.backlog
	in.backlog = nil
	in.started = true
	in.mu.Unlock()
	for _, msg := range backlog {
		fn(msg)
	}
	return unsubscribe
}

// LocalPort connects an in-process context to a Coordinator.
type LocalPort struct {
	Inbox
	coordinator *Coordinator
	id          TabID

	mu     sync.Mutex
	closed bool
}

// Connect registers an in-process context serving url.
func (c *Coordinator) Connect(url string, role Role) *LocalPort {
	p := &LocalPort{coordinator: c}
	p.id = c.Register(url, role, p.Deliver)
	return p
}

func (p *LocalPort) TabID() TabID { return p.id }

func (p *LocalPort) Send(ctx context.Context, msg Message) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPortClosed
	}
	return p.coordinator.Handle(ctx, p.id, msg)
}

func (p *LocalPort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.coordinator.Unregister(p.id)
	return nil
}
