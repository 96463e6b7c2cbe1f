package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryBus is an in-process event bus with synchronous dispatch. It backs
// tests and deployments that run without Redis; handlers execute on the
// publisher's goroutine in subscription order.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]func(ctx context.Context, payload []byte)
}

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]func(ctx context.Context, payload []byte)),
	}
}

// Publish marshals payload and invokes every handler registered for event.
func (b *MemoryBus) Publish(ctx context.Context, event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	b.mu.RLock()
	handlers := append([]func(ctx context.Context, payload []byte){}, b.handlers[event]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, raw)
	}
	return nil
}

// Subscribe registers handler for an event.
func (b *MemoryBus) Subscribe(event string, handler func(ctx context.Context, payload []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
	return nil
}
