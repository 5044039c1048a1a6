package events

import (
	"context"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Observer receives handler failures. Handlers run detached from the
// request, so this is the only place their errors surface.
type Observer func(Event, error)

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	Drain()
}

// Option configures the in-memory dispatcher.
type Option func(*inMemoryDispatcher)

// WithObserver routes handler errors and panics to fn.
func WithObserver(fn Observer) Option {
	return func(d *inMemoryDispatcher) { d.observer = fn }
}

// WithAsync runs every handler on its own goroutine.
func WithAsync() Option {
	return func(d *inMemoryDispatcher) { d.async = true }
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	observer  Observer
	async     bool
	inflight  sync.WaitGroup
}

// NewInMemoryDispatcher creates a dispatcher instance. Without WithAsync
// handlers run inline, which keeps tests deterministic.
func NewInMemoryDispatcher(opts ...Option) Dispatcher {
	d := &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish invokes handlers for the event. It never reports handler
// failures to the caller.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		if !d.async {
			d.run(detached, handler, event)
			continue
		}
		d.inflight.Add(1)
		go func(h EventHandler) {
			defer d.inflight.Done()
			d.run(detached, h, event)
		}(handler)
	}
	return nil
}

func (d *inMemoryDispatcher) run(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.observe(event, fmt.Errorf("handler panic: %v", r))
		}
	}()
	if err := handler(ctx, event); err != nil {
		d.observe(event, err)
	}
}

func (d *inMemoryDispatcher) observe(event Event, err error) {
	if d.observer != nil {
		d.observer(event, err)
	}
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Drain blocks until in-flight asynchronous handlers return.
func (d *inMemoryDispatcher) Drain() {
	d.inflight.Wait()
}
