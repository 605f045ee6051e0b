package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithFailureHandler is called for every event the publisher rejects
func WithFailureHandler(fn func(TransactionStatusChanged, error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onFailure = fn
	}
}

// WithDropHandler is called for every event discarded because the queue is full
func WithDropHandler(fn func(TransactionStatusChanged)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onDrop = fn
	}
}

// WithPublishTimeout bounds a single delivery attempt
func WithPublishTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// Dispatcher decouples event delivery from the ledger's commit path. Emit
// never blocks; a single worker drains the queue in order.
type Dispatcher struct {
	publisher Publisher
	queue     chan TransactionStatusChanged
	log       *zap.Logger
	onFailure func(TransactionStatusChanged, error)
	onDrop    func(TransactionStatusChanged)
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher delivering to publisher
func NewDispatcher(publisher Publisher, bufferSize int, log *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	d := &Dispatcher{
		publisher: publisher,
		queue:     make(chan TransactionStatusChanged, bufferSize),
		log:       log,
		timeout:   5 * time.Second,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}

	go d.run()
	return d
}

// Emit queues an event for delivery
func (d *Dispatcher) Emit(event TransactionStatusChanged) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event)
		return
	}

	select {
	case d.queue <- event:
	default:
		d.drop(event)
	}
}

func (d *Dispatcher) drop(event TransactionStatusChanged) {
	d.log.Warn("dropping transaction event",
		zap.String("transaction_id", event.TransactionID),
		zap.String("status", event.Status))
	if d.onDrop != nil {
		d.onDrop(event)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.publisher.Publish(ctx, event)
		cancel()

		if err != nil {
			d.log.Error("failed to publish transaction event",
				zap.String("transaction_id", event.TransactionID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			if d.onFailure != nil {
				d.onFailure(event, err)
			}
		}
	}
}

// Close stops accepting events, drains the queue and closes the publisher
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return d.publisher.Close()
}
