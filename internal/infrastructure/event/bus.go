package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish after Stop
var ErrBusStopped = errors.New("event bus is stopped")

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
)

// Option configures an InMemoryEventBus
type Option func(*InMemoryEventBus)

// WithQueueSize sets the number of deliveries buffered before Publish blocks
func WithQueueSize(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithWorkers sets the number of delivery goroutines
func WithWorkers(n int) Option {
	return func(b *InMemoryEventBus) {
		if n > 0 {
			b.workers = n
		}
	}
}

// delivery is one event bound for one handler
type delivery struct {
	ctx     context.Context
	handler shared.EventHandler
	event   shared.DomainEvent
}

// InMemoryEventBus delivers ledger events to in-process handlers.
// Before Start, and after Stop for in-flight work, handlers run on the caller's
// goroutine. While running, Publish enqueues and returns; workers deliver in
// the background. A handler error or panic never reaches the publisher.
type InMemoryEventBus struct {
	logger    *zap.Logger
	queueSize int
	workers   int

	subsMu   sync.RWMutex
	byType   map[string][]shared.EventHandler
	wildcard []shared.EventHandler

	stateMu sync.RWMutex
	queue   chan delivery
	stopped bool
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	b := &InMemoryEventBus{
		logger:    logger,
		queueSize: defaultQueueSize,
		workers:   defaultWorkers,
		byType:    make(map[string][]shared.EventHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands every event to its subscribers
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()

	if b.stopped {
		return ErrBusStopped
	}

	// deliveries outlive the request that published them
	dctx := context.WithoutCancel(ctx)
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			d := delivery{ctx: dctx, handler: handler, event: event}
			if b.queue == nil {
				b.dispatch(d)
				continue
			}
			select {
			case b.queue <- d:
			case <-ctx.Done():
				return fmt.Errorf("enqueue %s: %w", event.EventType(), ctx.Err())
			}
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used; an empty list subscribes to every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	}
	for _, t := range eventTypes {
		b.byType[t] = append(b.byType[t], handler)
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.wildcard = without(b.wildcard, handler)
	for t, hs := range b.byType {
		if hs = without(hs, handler); len(hs) == 0 {
			delete(b.byType, t)
		} else {
			b.byType[t] = hs
		}
	}
}

// Start launches the delivery workers
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if b.stopped {
		return ErrBusStopped
	}
	if b.queue != nil {
		return nil
	}

	b.queue = make(chan delivery, b.queueSize)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work(b.queue)
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop refuses new events and waits until queued deliveries finish or ctx expires
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stateMu.Lock()
	if b.stopped {
		b.stateMu.Unlock()
		return nil
	}
	b.stopped = true
	if b.queue != nil {
		close(b.queue)
	}
	b.stateMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) work(queue <-chan delivery) {
	defer b.wg.Done()
	for d := range queue {
		b.dispatch(d)
	}
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()
	typed := b.byType[eventType]
	out := make([]shared.EventHandler, 0, len(typed)+len(b.wildcard))
	out = append(out, typed...)
	return append(out, b.wildcard...)
}

// dispatch runs one handler, logging failures and recovering panics
func (b *InMemoryEventBus) dispatch(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", d.event.EventType()),
				zap.String("event_id", d.event.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := d.handler.Handle(d.ctx, d.event); err != nil {
		b.logger.Error("handler failed to process event",
			zap.String("event_type", d.event.EventType()),
			zap.String("event_id", d.event.EventID().String()),
			zap.String("tenant_id", d.event.TenantID().String()),
			zap.Error(err),
		)
	}
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	out := handlers[:0:0]
	for _, h := range handlers {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
