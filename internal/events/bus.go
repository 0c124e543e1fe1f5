package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event types published by the file-tree service.
const (
	// TypeBlobCleanup asks a cleanup worker to remove blob objects whose
	// metadata rows were tombstoned.
	TypeBlobCleanup = "blob.cleanup"

	// TypeBlobOrphaned reports blob keys left behind by a cascade whose
	// relocation or removal failed. A reconciliation pass can pick these up.
	TypeBlobOrphaned = "blob.orphaned"

	// TypePathRepair reports a descendant row whose materialized path could
	// not be rewritten during a folder cascade.
	TypePathRepair = "path.repair"
)

// Event is a fire-and-forget notification about background work.
type Event struct {
	Type      string
	ProjectID string
	NodeID    string
	Keys      []string // blob keys involved, if any
	At        time.Time
}

// Bus dispatches events to background consumers. Publishing never blocks
// the caller and delivery is best-effort.
type Bus interface {
	Publish(ev Event)
}

// Handler consumes a single event.
type Handler func(Event)

// AsyncBus fans events out to subscribers from a single dispatch goroutine.
// When the buffer is full the event is dropped and logged; producers are
// request handlers and must not stall on background work.
type AsyncBus struct {
	ch     chan Event
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []Handler
	closed   bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncBus creates a bus and starts its dispatch goroutine.
func NewAsyncBus(logger *slog.Logger) *AsyncBus {
	b := &AsyncBus{
		ch:     make(chan Event, 256),
		logger: logger,
		done:   make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe registers a handler for all events. Handlers run sequentially
// on the dispatch goroutine; long-running consumers should hand off work.
func (b *AsyncBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event without blocking. Events published after Close
// are dropped.
func (b *AsyncBus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.ch <- ev:
	default:
		b.logger.Warn("event bus full, dropping event",
			"type", ev.Type,
			"project_id", ev.ProjectID,
			"keys", len(ev.Keys),
		)
	}
}

// Close stops the dispatch goroutine after draining buffered events.
func (b *AsyncBus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.ch)
		<-b.done
	})
}

func (b *AsyncBus) dispatch() {
	defer close(b.done)

	for ev := range b.ch {
		b.mu.RLock()
		handlers := b.handlers
		b.mu.RUnlock()

		for _, h := range handlers {
			h(ev)
		}
	}
}
