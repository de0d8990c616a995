package transport

import (
	"context"
	"errors"
	"sync"
)

// MemoryBus connects in-process participants of one session. Delivery is
// synchronous: SendToAuthority returns after the authority and, when it
// asks for a relay, every other participant has handled the payload.
type MemoryBus struct {
	mu        sync.Mutex
	endpoints []*MemoryTransport
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Join adds a participant endpoint. At most one endpoint may be the authority.
func (b *MemoryBus) Join(name string, authority bool) (*MemoryTransport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if authority {
		for _, ep := range b.endpoints {
			if ep.authority {
				return nil, errors.New("session already has an authority: " + ep.name)
			}
		}
	}

	ep := &MemoryTransport{bus: b, name: name, authority: authority}
	b.endpoints = append(b.endpoints, ep)
	return ep, nil
}

func (b *MemoryBus) leave(ep *MemoryTransport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.endpoints {
		if e == ep {
			b.endpoints = append(b.endpoints[:i], b.endpoints[i+1:]...)
			return
		}
	}
}

func (b *MemoryBus) snapshot() []*MemoryTransport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MemoryTransport(nil), b.endpoints...)
}

// MemoryTransport is one participant's endpoint on a MemoryBus.
type MemoryTransport struct {
	bus       *MemoryBus
	name      string
	authority bool

	mu      sync.Mutex
	handler Handler
	sub     *memorySubscription
}

// Ensure MemoryTransport implements Transport interface
var _ Transport = (*MemoryTransport)(nil)

func (t *MemoryTransport) Name() string {
	return t.name
}

func (t *MemoryTransport) IsAuthority() bool {
	return t.authority
}

func (t *MemoryTransport) currentHandler() Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler
}

func (t *MemoryTransport) SendToAuthority(ctx context.Context, payload []byte) error {
	for _, ep := range t.bus.snapshot() {
		if !ep.authority {
			continue
		}
		h := ep.currentHandler()
		if h == nil {
			return ErrNoAuthority
		}
		if h(ctx, clone(payload)) == RelayToEveryone {
			return ep.Broadcast(ctx, payload)
		}
		return nil
	}
	return ErrNoAuthority
}

func (t *MemoryTransport) Broadcast(ctx context.Context, payload []byte) error {
	for _, ep := range t.bus.snapshot() {
		if ep.authority {
			continue
		}
		if h := ep.currentHandler(); h != nil {
			// Non-authorities never relay further.
			h(ctx, clone(payload))
		}
	}
	return nil
}

func (t *MemoryTransport) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		return nil, errors.New("endpoint already subscribed: " + t.name)
	}

	sub := &memorySubscription{transport: t, done: make(chan struct{})}
	t.handler = h
	t.sub = sub

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Close removes the endpoint from the bus.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	sub := t.sub
	t.mu.Unlock()
	if sub != nil {
		_ = sub.Close()
	}
	t.bus.leave(t)
	return nil
}

type memorySubscription struct {
	transport *MemoryTransport
	done      chan struct{}
	once      sync.Once
}

func (s *memorySubscription) Done() <-chan struct{} {
	return s.done
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		t := s.transport
		t.mu.Lock()
		if t.sub == s {
			t.handler = nil
			t.sub = nil
		}
		t.mu.Unlock()
		close(s.done)
	})
	return nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
