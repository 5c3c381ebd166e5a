// Package control is the message-passing link between the external
// control surface and the running pipeline. Services register
// transport-agnostic handlers on a Bus; the admin HTTP server dispatches
// into it. Handlers are bytes in, bytes out, so the channel shape stays
// the same whether the caller is an HTTP request or another component in
// the same binary.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handler is a service function: bytes in, bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// ErrServiceNotFound is returned by Call for unregistered services.
type ErrServiceNotFound struct {
	Service string
}

func (e *ErrServiceNotFound) Error() string {
	return fmt.Sprintf("control: service %q not registered", e.Service)
}

// Bus dispatches control calls to registered local handlers.
// Thread-safe: registration and dispatch may interleave.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// NewBus creates an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[string]Handler),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// RegisterLocal registers an in-memory handler for a service.
func (b *Bus) RegisterLocal(service string, h Handler) {
	b.mu.Lock()
	b.handlers[service] = h
	b.mu.Unlock()
}

// Call dispatches a service call. The handler runs synchronously on the
// caller's goroutine; acknowledgment is its return value.
func (b *Bus) Call(ctx context.Context, service string, payload []byte) ([]byte, error) {
	b.mu.RLock()
	h := b.handlers[service]
	b.mu.RUnlock()

	if h == nil {
		return nil, &ErrServiceNotFound{Service: service}
	}

	b.logger.DebugContext(ctx, "control: dispatching", "service", service)
	return h(ctx, payload)
}
